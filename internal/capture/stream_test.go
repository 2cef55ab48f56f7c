package capture

import "testing"

func TestDefaultEntryPicksFlaggedDevice(t *testing.T) {
	entries := []deviceEntry{
		{name: "Monitor of Speakers"},
		{name: "Built-in Microphone", isDefault: true},
		{name: "USB Webcam Mic"},
	}

	got := defaultEntry(entries)
	if got.name != "Built-in Microphone" {
		t.Fatalf("expected the flagged default device, got %q", got.name)
	}
}

func TestDefaultEntryWithoutFlaggedDevice(t *testing.T) {
	entries := []deviceEntry{
		{name: "Monitor of Speakers"},
		{name: "USB Webcam Mic"},
	}

	// The backend will open its own default (nil ID); the selection must
	// not claim another device's name for it.
	got := defaultEntry(entries)
	if got.name != "system default" {
		t.Fatalf("expected generic default label, got %q", got.name)
	}
	if got.id != nil {
		t.Fatal("expected nil device ID for the backend default")
	}
}
