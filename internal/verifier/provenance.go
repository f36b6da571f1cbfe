package verifier

import (
	_ "embed"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"gridtruth/domain/verdict"
)

//go:embed provenance.schema.json
var provenanceSchemaText string

var provenanceSchema = jsonschema.MustCompileString("https://gridtruth.invalid/provenance.schema.json", provenanceSchemaText)

// ProvenanceKeys are the header keys every generated pack must carry. Values
// may be null.
var ProvenanceKeys = []string{
	"provenance.decisionPackId",
	"provenance.generatedAt",
	"provenance.revisionId",
	"provenance.runId",
	"provenance.tariffSnapshotId",
	"provenance.truthSnapshotId",
}

// ProvenanceHeader fails when the generated pack lacks a provenance key or
// carries one with the wrong type. It does not apply when no pack exists.
func ProvenanceHeader(in Input) []verdict.CheckResult {
	if len(in.Pack) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(in.Pack, &doc); err != nil {
		r := result(verdict.CodeProvenanceHeader, verdict.StatusFail, "pack is not valid JSON")
		return []verdict.CheckResult{r}
	}
	err := provenanceSchema.Validate(doc)
	if err == nil {
		return []verdict.CheckResult{result(verdict.CodeProvenanceHeader, verdict.StatusPass,
			"provenance header present")}
	}

	var missing, mistyped []string
	for _, key := range ProvenanceKeys {
		v := gjson.GetBytes(in.Pack, key)
		switch {
		case !v.Exists():
			missing = append(missing, key)
		case v.Type != gjson.String && v.Type != gjson.Null:
			mistyped = append(mistyped, key)
		}
	}
	r := result(verdict.CodeProvenanceHeader, verdict.StatusFail, "provenance header is not an object")
	switch {
	case len(missing) > 0:
		r.Message = "provenance header is missing required keys"
	case len(mistyped) > 0:
		r.Message = "provenance header keys must be strings or null"
	}
	r.Paths = append(missing, mistyped...)
	if len(r.Paths) == 0 {
		r.Paths = []string{"provenance"}
	}
	r.Details = map[string]any{"missing": len(missing), "mistyped": len(mistyped)}
	return []verdict.CheckResult{r}
}
