package main

import (
	"github.com/kailas-cloud/docsig/internal/config"
	"github.com/kailas-cloud/docsig/internal/fingerprint"
	"github.com/kailas-cloud/docsig/internal/usecase/signature"
)

// signatureSettings maps the config section onto engine settings.
func signatureSettings(c config.SignatureConfig) signature.Settings {
	return signature.Settings{
		Enabled:          c.IsEnabled(),
		SignatureField:   c.SignatureField,
		UniqueIDField:    c.UniqueIDField,
		ContentHashField: c.ContentHashField,
		TextField:        c.TextField,
		TextFields:       append([]string(nil), c.TextSignatureFields...),
		TextAlgorithm:    c.TextSignatureAlgorithm,
		OtherFields:      append([]string(nil), c.OtherSignatureFields...),
		OtherAlgorithm:   c.OtherSignatureAlgorithm,
	}
}

// algorithmResolver resolves configured algorithm ids with the text profile tuning applied.
func algorithmResolver(tp config.TextProfileConfig) signature.AlgorithmResolver {
	opts := fingerprint.Options{QuantRate: tp.QuantRate, MinTokenLen: tp.MinTokenLen}
	return func(id string) (signature.Fingerprinter, error) {
		return fingerprint.New(id, opts)
	}
}
