package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestStitchWAVConcatenatesPCM(t *testing.T) {
	a := WAV([]byte("aaaa"), 16000, 1, 2)
	b := WAV([]byte("bbbb"), 16000, 1, 2)

	out, err := Stitch([][]byte{a, b}, "wav", 0)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}

	data, params, err := parseWAV(out)
	if err != nil {
		t.Fatalf("output is not a valid WAV: %v", err)
	}
	if params.sampleRate != 16000 || params.channels != 1 || params.width != 2 {
		t.Errorf("params = %+v", params)
	}
	if string(data) != "aaaabbbb" {
		t.Errorf("payload = %q, want %q", data, "aaaabbbb")
	}
}

func TestStitchWAVInsertsGap(t *testing.T) {
	a := WAV([]byte("aa"), 1000, 1, 2)
	b := WAV([]byte("bb"), 1000, 1, 2)

	// 0.5s at 1000 Hz, 2 bytes per sample, mono = 1000 bytes of silence
	out, err := Stitch([][]byte{a, b}, "wav", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	data, _, err := parseWAV(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(data) != 2+1000+2 {
		t.Fatalf("payload length = %d, want 1004", len(data))
	}
	if !bytes.Equal(data[2:1002], make([]byte, 1000)) {
		t.Error("gap is not silence")
	}
	if string(data[:2]) != "aa" || string(data[1002:]) != "bb" {
		t.Errorf("payload = %q", data)
	}

	// no gap before the first segment
	if string(data[:2]) != "aa" {
		t.Error("leading gap inserted")
	}
}

func TestStitchWAVRejectsMismatchedFormats(t *testing.T) {
	a := WAV([]byte("aaaa"), 16000, 1, 2)
	b := WAV([]byte("bbbb"), 24000, 1, 2)

	if _, err := Stitch([][]byte{a, b}, "wav", 0); err == nil {
		t.Fatal("expected format mismatch error")
	}
}

func TestStitchWAVRejectsGarbage(t *testing.T) {
	if _, err := Stitch([][]byte{[]byte("not audio")}, "wav", 0); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStitchMP3Concatenates(t *testing.T) {
	out, err := Stitch([][]byte{[]byte("mp3-a"), []byte("mp3-b")}, "mp3", 0)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if string(out) != "mp3-amp3-b" {
		t.Errorf("out = %q", out)
	}
}

func TestStitchRejectsEmptyAndUnknown(t *testing.T) {
	if _, err := Stitch(nil, "wav", 0); err == nil {
		t.Fatal("expected error for no segments")
	}
	if _, err := Stitch([][]byte{{1}}, "ogg", 0); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseWAVSkipsExtraChunks(t *testing.T) {
	// a LIST chunk between fmt and data must be walked over
	base := WAV([]byte("payload!"), 8000, 1, 2)
	var out bytes.Buffer
	out.Write(base[:36]) // RIFF header + fmt chunk
	out.WriteString("LIST")
	out.Write([]byte{4, 0, 0, 0})
	out.WriteString("INFO")
	out.Write(base[36:]) // data chunk

	data, params, err := parseWAV(out.Bytes())
	if err != nil {
		t.Fatalf("parseWAV: %v", err)
	}
	if string(data) != "payload!" || params.sampleRate != 8000 {
		t.Errorf("data = %q, params = %+v", data, params)
	}
}
