package crypto

import "testing"

func TestSignAndVerify_RoundTrips(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hash := Hash([]byte("message"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatal(err)
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Fatal("expected signature to verify against its own public key")
	}
}

func TestVerifySignature_RejectsWrongKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	other, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hash := Hash([]byte("message"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatal(err)
	}
	if VerifySignature(hash[:], sig, other.PublicKey()) {
		t.Fatal("signature should not verify against an unrelated public key")
	}
}

func TestVerifySignature_RejectsTamperedHash(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hash := Hash([]byte("message"))
	tampered := Hash([]byte("tampered"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatal(err)
	}
	if VerifySignature(tampered[:], sig, key.PublicKey()) {
		t.Fatal("signature should not verify against a different hash")
	}
}

func TestPrivateKeyFromBytes_RejectsWrongLength(t *testing.T) {
	if _, err := PrivateKeyFromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for a short key")
	}
}

func TestSchnorrVerifier_MatchesVerifySignature(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hash := Hash([]byte("message"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatal(err)
	}

	var v SchnorrVerifier
	if !v.Verify(hash[:], sig, key.PublicKey()) {
		t.Fatal("SchnorrVerifier should agree with VerifySignature")
	}
}
