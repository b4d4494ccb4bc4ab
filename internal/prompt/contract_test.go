package prompt

import (
	"strings"
	"testing"
)

func TestBuildPromptDeterministic(t *testing.T) {
	canonical := "Engineer Notes/Specs: \"4x95mm2 Al PVC 0.6/1kV\"\n"

	first := BuildPrompt(canonical)
	if BuildPrompt(canonical) != first {
		t.Fatal("prompt text must be byte-identical for equal canonical context")
	}

	if !strings.Contains(first, canonical) {
		t.Error("prompt must embed the canonical context verbatim")
	}
	if !strings.Contains(first, DefaultStandard) {
		t.Errorf("prompt must cite %s", DefaultStandard)
	}
	if !strings.Contains(first, HighVoltageStandard) {
		t.Errorf("prompt must cite %s for higher voltage tiers", HighVoltageStandard)
	}
	if !strings.Contains(first, "STRICT JSON ONLY") {
		t.Error("prompt must demand strict JSON output")
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Temperature != 0.2 || p.TopP != 0.8 || p.TopK != 40 {
		t.Errorf("unexpected decoding configuration: %+v", p)
	}
	if !p.JSONOutput {
		t.Error("JSON output mode must be on")
	}
}

func TestFingerprintStability(t *testing.T) {
	canonical := "Structured Specs: {\"csa\":240}\n"

	a := Fingerprint(canonical)
	b := Fingerprint(canonical)
	if a != b {
		t.Fatalf("fingerprint not stable: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 digest, got %q", a)
	}

	if Fingerprint("Structured Specs: {\"csa\":241}\n") == a {
		t.Error("different canonical contexts must not collide trivially")
	}
}

func TestFingerprintBoundToContractVersion(t *testing.T) {
	// The version participates in the digest, so the raw canonical text
	// alone must not reproduce it.
	canonical := "Engineer Notes/Specs: \"test\"\n"
	if Fingerprint(canonical) == Fingerprint(ContractVersion+"\n"+canonical) {
		t.Error("fingerprint must mix the contract version into the digest")
	}
}
