package fieldcrypt

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New("unit-test-secret")

	amounts := []float64{0, 0.01, 1, 42.5, 169.99, 1699, 12345.67, 99999999.99}
	for _, want := range amounts {
		encoded, err := c.Encode(want)
		if err != nil {
			t.Fatalf("Encode(%v): %v", want, err)
		}
		got, err := c.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(Encode(%v)): %v", want, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("round trip of %v yielded %v", want, got)
		}
	}
}

func TestEncodeIsNonDeterministic(t *testing.T) {
	c := New("unit-test-secret")

	first, err := c.Encode(420.69)
	if err != nil {
		t.Fatalf("first Encode: %v", err)
	}
	second, err := c.Encode(420.69)
	if err != nil {
		t.Fatalf("second Encode: %v", err)
	}
	if first == second {
		t.Fatalf("two encodes of the same amount produced identical output %q", first)
	}

	for _, enc := range []string{first, second} {
		got, err := c.Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%q): %v", enc, err)
		}
		if math.Abs(got-420.69) > 1e-9 {
			t.Fatalf("Decode(%q) = %v, want 420.69", enc, got)
		}
	}
}

func TestEncodedShape(t *testing.T) {
	c := New("unit-test-secret")

	encoded, err := c.Encode(55.5)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ivHex, ctHex, ok := strings.Cut(encoded, ":")
	if !ok {
		t.Fatalf("encoded value %q has no separator", encoded)
	}
	if len(ivHex) != 32 {
		t.Fatalf("iv segment is %d hex chars, want 32", len(ivHex))
	}
	if len(ctHex) == 0 || len(ctHex)%32 != 0 {
		t.Fatalf("ciphertext segment length %d is not a positive multiple of 32 hex chars", len(ctHex))
	}
}

// Flipping any ciphertext character must never silently decode back to
// the original amount: either Decode errors or the value differs.
func TestTamperedCiphertextNeverDecodesToOriginal(t *testing.T) {
	c := New("unit-test-secret")
	const want = 1234.56

	encoded, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	sep := strings.IndexByte(encoded, ':')

	for i := sep + 1; i < len(encoded); i++ {
		tampered := []byte(encoded)
		if tampered[i] == '0' {
			tampered[i] = '1'
		} else {
			tampered[i] = '0'
		}
		got, err := c.Decode(string(tampered))
		if err == nil && math.Abs(got-want) < 1e-9 {
			t.Fatalf("tampering at index %d silently returned the original amount", i)
		}
	}
}

func TestDecodeWithWrongKeyFails(t *testing.T) {
	encoded, err := New("key-one").Encode(77.7)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := New("key-two").Decode(encoded)
	if err == nil && math.Abs(got-77.7) < 1e-9 {
		t.Fatalf("decode under a different key returned the original amount")
	}
}

func TestDecodeMalformedInput(t *testing.T) {
	c := New("unit-test-secret")

	malformed := []string{
		"",
		"no-separator",
		"deadbeef:",                          // empty ciphertext
		":deadbeefdeadbeefdeadbeefdeadbeef",  // empty iv
		"zzzz:deadbeefdeadbeefdeadbeefdead",  // non-hex iv
		"00112233445566778899aabbccddeeff:xyz", // non-hex ciphertext
		"0011223344556677:deadbeefdeadbeefdeadbeefdeadbeef",                 // short iv
		"00112233445566778899aabbccddeeff:deadbeef",                         // ct not block-multiple
		"00112233445566778899aabbccddeeff00:deadbeefdeadbeefdeadbeefdeadbeef", // long iv
	}

	for _, in := range malformed {
		if _, err := c.Decode(in); !errors.Is(err, ErrMalformedCiphertext) {
			t.Fatalf("Decode(%q) error = %v, want ErrMalformedCiphertext", in, err)
		}
	}
}

func TestDecodeGarbageBlockFails(t *testing.T) {
	c := New("unit-test-secret")

	// Structurally valid, but a random block will not unpad/parse.
	in := "00112233445566778899aabbccddeeff:00112233445566778899aabbccddeeff"
	got, err := c.Decode(in)
	if err == nil {
		t.Fatalf("Decode of garbage block succeeded with %v", got)
	}
	if !errors.Is(err, ErrDecryptionFailure) {
		t.Fatalf("Decode error = %v, want ErrDecryptionFailure", err)
	}
}
