package transport

import "testing"

func TestObfuscatePasswordLength(t *testing.T) {
	got := ObfuscatePassword("swordfish")
	if len(got) != obfuscatedLoginLength {
		t.Fatalf("ObfuscatePassword length = %d, want %d", len(got), obfuscatedLoginLength)
	}
}

func TestObfuscatePasswordPlacesLengthDigits(t *testing.T) {
	password := "abcdefghij1234" // length 14
	got := ObfuscatePassword(password)
	if got[tensDigitPosition] != '1' {
		t.Errorf("tens digit at %d = %q, want '1'", tensDigitPosition, got[tensDigitPosition])
	}
	if got[onesDigitPosition] != '4' {
		t.Errorf("ones digit at %d = %q, want '4'", onesDigitPosition, got[onesDigitPosition])
	}
}

func TestObfuscatePasswordPlacesReversedCharsAtMultiplesOfFive(t *testing.T) {
	password := "abc"
	got := ObfuscatePassword(password)
	reversed := "cba"
	for i, c := range reversed {
		pos := i * 5
		if got[pos] != byte(c) {
			t.Errorf("position %d = %q, want %q", pos, got[pos], byte(c))
		}
	}
}

func TestExtractXSSID(t *testing.T) {
	html := `<html><form><input type="hidden" name="XSSID" value="abc123XYZ"></form></html>`
	got, ok := ExtractXSSID(html)
	if !ok || got != "abc123XYZ" {
		t.Errorf("ExtractXSSID = (%q, %v), want (abc123XYZ, true)", got, ok)
	}
}

func TestExtractXSSIDMissing(t *testing.T) {
	if _, ok := ExtractXSSID("<html>no token here</html>"); ok {
		t.Error("expected no XSSID match")
	}
}

func TestParsePostCommand(t *testing.T) {
	path, fields := parsePostCommand("/cgi-bin/dispatcher.cgi|vlan=100,name=Servers")
	if path != "/cgi-bin/dispatcher.cgi" {
		t.Errorf("path = %q", path)
	}
	if fields["vlan"] != "100" || fields["name"] != "Servers" {
		t.Errorf("fields = %v", fields)
	}
}
