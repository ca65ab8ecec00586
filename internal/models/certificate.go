package models

// CertificateMaterial holds the flattened PEM bodies issued for one device: no
// envelope markers and no line breaks.
type CertificateMaterial struct {
	CACert     string
	ClientCert string
	ClientKey  string
}
