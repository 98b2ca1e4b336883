package supervisor

import "testing"

func TestRedactDeviceIDs(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "id in message",
			line: "device ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG-HIJKLMN connected",
			want: "device  connected",
		},
		{
			name: "id at start",
			line: "ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG-HIJKLMN is offline",
			want: " is offline",
		},
		{
			name: "two ids",
			line: "ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG-HIJKLMN and ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG-HIJKLMN",
			want: " and ",
		},
		{
			name: "no id",
			line: "folder default is up to date",
			want: "folder default is up to date",
		},
		{
			name: "too few groups",
			line: "ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG looks like an id but is not",
			want: "ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG looks like an id but is not",
		},
		{
			name: "lowercase not matched",
			line: "abcdefg-hijklmn-opqrstu-vwxyz12-3456789-abcdefg-hijklmn",
			want: "abcdefg-hijklmn-opqrstu-vwxyz12-3456789-abcdefg-hijklmn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactDeviceIDs(tt.line); got != tt.want {
				t.Errorf("RedactDeviceIDs(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestFilterLine(t *testing.T) {
	line := "device ABCDEFG-HIJKLMN-OPQRSTU-VWXYZ12-3456789-ABCDEFG-HIJKLMN connected"

	if got := FilterLine(line, false); got != line {
		t.Errorf("FilterLine(hideIDs=false) = %q, want unchanged", got)
	}
	if got := FilterLine(line, true); got != "device  connected" {
		t.Errorf("FilterLine(hideIDs=true) = %q, want %q", got, "device  connected")
	}
}
