package store

import (
	"regexp"
	"testing"
)

func TestResultKey(t *testing.T) {
	tests := []struct {
		inputKey string
		want     string
	}{
		{"originals/contract.pdf", "attributes/contract.pdf.json"},
		{"uploaded/invoice_ab12cd34.png", "attributes/invoice_ab12cd34.png.json"},
		{"processed/contract.pdf.txt", "attributes/contract.pdf.json"},
		{"contract.pdf", "attributes/contract.pdf.json"},
		{"originals/nested/scan.pdf", "attributes/nested/scan.pdf.json"},
		{"processed/notes.txt", "attributes/notes.json"},
	}

	for _, tt := range tests {
		if got := ResultKey(tt.inputKey); got != tt.want {
			t.Errorf("ResultKey(%q) = %q, want %q", tt.inputKey, got, tt.want)
		}
	}
}

func TestResultKeyUnifiesProcessedAndOriginal(t *testing.T) {
	original := "originals/contract.pdf"
	processed := ProcessedKey(original)

	if got, want := ResultKey(original), ResultKey(processed); got != want {
		t.Fatalf("result keys diverge: original %q, processed %q", want, got)
	}
}

func TestResultKeyUnifiesTxtPassthrough(t *testing.T) {
	original := "originals/notes.txt"
	processed := ProcessedKey(original)

	if got, want := ResultKey(processed), ResultKey(original); got != want {
		t.Fatalf("result keys diverge: original %q, passthrough %q", want, got)
	}
}

func TestProcessedKey(t *testing.T) {
	tests := []struct {
		inputKey string
		want     string
	}{
		{"originals/contract.pdf", "processed/contract.pdf.txt"},
		{"uploaded/scan_12345678.png", "processed/scan_12345678.png.txt"},
		{"notes.docx", "processed/notes.docx.txt"},
		{"originals/notes.txt", "processed/notes.txt"},
		{"originals/REPORT.TXT", "processed/REPORT.TXT"},
	}

	for _, tt := range tests {
		if got := ProcessedKey(tt.inputKey); got != tt.want {
			t.Errorf("ProcessedKey(%q) = %q, want %q", tt.inputKey, got, tt.want)
		}
	}
}

func TestUploadedKey(t *testing.T) {
	pattern := regexp.MustCompile(`^uploaded/contract_[0-9a-f]{8}\.pdf$`)

	got := UploadedKey("contract.pdf")
	if !pattern.MatchString(got) {
		t.Errorf("UploadedKey(contract.pdf) = %q, want match for %s", got, pattern)
	}

	if UploadedKey("contract.pdf") == UploadedKey("contract.pdf") {
		t.Error("UploadedKey should not collide across calls")
	}

	nested := UploadedKey("some/dir/photo.jpeg")
	if !regexp.MustCompile(`^uploaded/photo_[0-9a-f]{8}\.jpeg$`).MatchString(nested) {
		t.Errorf("UploadedKey with path = %q, want basename only", nested)
	}
}

func TestGrantKey(t *testing.T) {
	if got := GrantKey("contract.pdf"); got != "originals/contract.pdf" {
		t.Errorf("GrantKey(contract.pdf) = %q, want originals/contract.pdf", got)
	}
	if got := GrantKey("../../etc/passwd"); got != "originals/passwd" {
		t.Errorf("GrantKey must strip path components, got %q", got)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"contract.pdf", "application/pdf"},
		{"notes.TXT", "text/plain"},
		{"scan.jpg", "image/jpeg"},
		{"scan.jpeg", "image/jpeg"},
		{"page.png", "image/png"},
		{"report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"legacy.doc", "application/msword"},
		{"result.json", "application/json"},
		{"archive.zip", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := ContentTypeFor(tt.name); got != tt.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
