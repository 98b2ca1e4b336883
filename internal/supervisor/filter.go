package supervisor

import "regexp"

// deviceIDPattern matches syncthing device IDs: seven groups of seven
// characters from the base32 alphabet syncthing uses, joined by hyphens
// (e.g., ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG-HIJKLMN).
var deviceIDPattern = regexp.MustCompile(`[A-Z0-9]{7}(-[A-Z0-9]{7}){6}`)

// RedactDeviceIDs removes every device ID from the line. Surrounding
// text is left untouched, so the result may contain doubled spaces where
// an ID used to be.
func RedactDeviceIDs(line string) string {
	return deviceIDPattern.ReplaceAllString(line, "")
}

// FilterLine prepares a raw output line for republication. When hideIDs
// is set, device IDs are redacted; otherwise the line passes through
// unchanged. Blank-line suppression happens in the stream readers before
// lines reach this filter.
func FilterLine(line string, hideIDs bool) string {
	if !hideIDs {
		return line
	}
	return RedactDeviceIDs(line)
}
