package adapters

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/materialsio/internal/model"
)

// cutoffKeys maps each code to the input tag holding its plane-wave cutoff
var cutoffKeys = map[string]string{
	"vasp":  "ENCUT",
	"pwscf": "ecutwfc",
}

// DFT reduces dft parser records to a summary
type DFT struct{}

// NewDFT creates the dft summary adapter
func NewDFT() *DFT {
	return &DFT{}
}

// Describe returns the adapter documentation
func (a *DFT) Describe() string {
	return `Summarise DFT records into code, system, energy and cutoff

Records without a final energy are dropped.`
}

// Version returns the adapter version
func (a *DFT) Version() string {
	return "0.1.0"
}

// Transform builds the summary record
func (a *DFT) Transform(rec model.Record) (model.Record, error) {
	code, _ := rec["code"].(string)
	if code == "" {
		return nil, fmt.Errorf("record has no code field")
	}

	energy, ok := toFloat(rec["energy"])
	if !ok {
		return nil, Veto("%s calculation has no final energy", code)
	}

	out := model.Record{
		"code":      code,
		"energy_ev": energy,
	}
	if system, _ := rec["system"].(string); system != "" {
		out["system"] = system
	}
	if steps, ok := toFloat(rec["ionic_steps"]); ok && steps > 0 {
		out["ionic_steps"] = int(steps)
	}

	if settings, ok := rec["settings"].(map[string]any); ok {
		if raw, ok := settings[cutoffKeys[code]]; ok {
			if cutoff, ok := toFloat(raw); ok {
				out["cutoff"] = cutoff
			}
		}
	}

	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
