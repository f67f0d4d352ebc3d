package findings

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// fingerprintDelim separates fingerprint components. A pipe is not expected
// inside file paths or rule identifiers.
const fingerprintDelim = "|"

// Fingerprint produces a deterministic SHA-256 hex digest identifying a
// finding across scans. The digest covers file, line, rule ID, severity, and
// tool, in that fixed order, with absent fields contributing empty strings.
// When includeMessage is true the message is appended as a sixth component,
// trading stability for precision. Only immutable scan-result fields
// participate; policy annotations never affect identity.
func Fingerprint(f Finding, includeMessage bool) string {
	components := []string{
		f.File,
		lineComponent(f.Line),
		f.RuleID,
		string(f.Severity),
		f.Tool,
	}
	if includeMessage {
		components = append(components, f.Message)
	}
	sum := sha256.Sum256([]byte(strings.Join(components, fingerprintDelim)))
	return hex.EncodeToString(sum[:])
}

// lineComponent renders the line number for hashing. Zero means the scanner
// reported no line, which hashes as an empty component.
func lineComponent(line int) string {
	if line == 0 {
		return ""
	}
	return strconv.Itoa(line)
}
