// Package certs converts PEM documents to and from the single-line form Ditto
// connection descriptors carry.
package certs

import (
	"regexp"
	"strings"
)

// PEM block types re-added by Envelope.
const (
	TypeCertificate = "CERTIFICATE"
	TypePrivateKey  = "PRIVATE KEY"
)

var (
	markerPattern  = regexp.MustCompile(`-----(BEGIN|END) [A-Z0-9 ]+-----`)
	newlinePattern = regexp.MustCompile(`[\r\n]+`)
	spacePattern   = regexp.MustCompile(` {2,}`)
)

// Flatten strips every BEGIN/END envelope marker from a PEM document and
// collapses line breaks into single spaces.
func Flatten(pem string) string {
	body := markerPattern.ReplaceAllString(pem, "")
	body = newlinePattern.ReplaceAllString(body, " ")
	body = spacePattern.ReplaceAllString(body, " ")
	return strings.TrimSpace(body)
}

// Envelope wraps a flattened body back into BEGIN/END markers of the given block type.
func Envelope(blockType, body string) string {
	return "-----BEGIN " + blockType + "-----\n" + body + "\n-----END " + blockType + "-----"
}

// Restore turns a flattened body back into a PEM document that encoding/pem can
// decode, with the base64 payload on its own lines.
func Restore(blockType, body string) string {
	var b strings.Builder
	b.WriteString("-----BEGIN " + blockType + "-----\n")
	for _, line := range strings.Fields(body) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("-----END " + blockType + "-----\n")
	return b.String()
}
