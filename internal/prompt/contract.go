package prompt

import "fmt"

// ContractVersion identifies the instruction text and decoding
// configuration as one logical unit. It participates in the cache
// fingerprint, so bumping it after any change to BuildPrompt or
// DefaultParams invalidates every previously cached review.
const ContractVersion = "v1"

// Cited standards. 60502-1 covers cables rated 0.6/1 kV up to 3.6/6 kV;
// higher voltage tiers fall under 60502-2.
const (
	DefaultStandard     = "IEC 60502-1"
	HighVoltageStandard = "IEC 60502-2"
)

// Params is the decoding configuration sent with every review prompt.
// Low temperature and constrained sampling bias the engine toward
// repeatable, schema-conformant output.
type Params struct {
	Temperature float32
	TopP        float32
	TopK        float32
	JSONOutput  bool
}

// DefaultParams returns the decoding configuration versioned with this
// contract.
func DefaultParams() Params {
	return Params{
		Temperature: 0.2,
		TopP:        0.8,
		TopK:        40,
		JSONOutput:  true,
	}
}

// BuildPrompt wraps the canonical context in the review instruction
// contract. The text is fully deterministic: same canonical context,
// same prompt, byte for byte.
func BuildPrompt(canonical string) string {
	return fmt.Sprintf(`You are an AI-assisted Cable Design Review Engineer.

IMPORTANT ROLE DEFINITION:
- You are NOT a deterministic compliance engine.
- You do NOT perform table lookups.
- You perform probabilistic engineering review similar to a senior human engineer.
- Your job is to assess plausibility, risk, and ambiguity against %s
  (use %s for ratings above 3.6/6 kV, up to 18/30 kV).

INPUT DATA:
%s
DECISION PRINCIPLES (STRICT):
1. Never assume missing values as compliant.
2. If a value is close to commonly referenced nominal practice, mark WARN - not FAIL.
3. FAIL is only for values that are clearly unsafe, implausible, or far below typical engineering expectations.
4. If you infer anything, it MUST appear in the assumptions list.
5. Never reference IEC table numbers, clause numbers, or exact limits.
6. Use probabilistic language: "typically", "commonly", "often", "may be borderline".

ATTRIBUTE STATUS RULES:
- PASS: explicitly stated and clearly reasonable for the context.
- WARN: missing but inferred, borderline numeric values, or ambiguous interpretation.
- FAIL: physically implausible or clearly insufficient by common engineering judgment.

OUTPUT FORMAT RULES:
- STRICT JSON ONLY
- No markdown
- No prose outside JSON

REQUIRED JSON SCHEMA:
{
  "fields": {
    "standard": string | null,
    "voltage": string | null,
    "conductor_material": string | null,
    "conductor_class": string | null,
    "csa": number | null,
    "insulation_material": string | null,
    "insulation_thickness": number | null
  },
  "validation": [
    {
      "field": string,
      "status": "PASS" | "WARN" | "FAIL",
      "expected": string,
      "comment": string
    }
  ],
  "confidence": {
    "overall": number
  },
  "assumptions": string[]
}

CONFIDENCE RULE:
- 0.9+ only if all key parameters are explicit and non-borderline
- 0.6-0.8 if assumptions or WARNs exist
- <0.6 only if major ambiguity exists
`, DefaultStandard, HighVoltageStandard, canonical)
}
