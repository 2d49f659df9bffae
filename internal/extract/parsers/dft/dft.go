// Package dft extracts metadata from Density Functional Theory calculations.
//
// VASP outputs are grouped by file family and suffix, so OUTCAR.2 and INCAR.2
// end up together. Files that are not recognised as VASP are grouped by
// directory and checked for PWSCF (Quantum ESPRESSO) output.
//
// Context keys:
//
//	quality_report (bool)  list the standard VASP files missing from the group
package dft

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/invopop/jsonschema"
	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/grouping"
	"github.com/ppiankov/materialsio/internal/model"
)

// Name is the registry name of the parser
const Name = "dft"

// rydbergToEV converts PWSCF energies
const rydbergToEV = 13.605693122994

// VASPFiles are the file families known to the VASP grouping
var VASPFiles = []string{
	"outcar", "incar", "chgcar", "wavecar", "wavcar",
	"oszicar", "ibzcar", "kpoints", "doscar", "poscar",
	"contcar", "vasprun.xml", "xdatcar",
}

// requiredVASPFiles are reported missing by the quality report
var requiredVASPFiles = []string{"incar", "kpoints", "outcar", "poscar"}

const vaspCitation = `@article{kresse1996efficient,
  title={Efficient iterative schemes for ab initio total-energy calculations using a plane-wave basis set},
  author={Kresse, Georg and Furthm{\"u}ller, J{\"u}rgen},
  journal={Physical Review B},
  volume={54},
  number={16},
  pages={11169},
  year={1996}
}`

const pwscfCitation = `@article{giannozzi2009quantum,
  title={QUANTUM ESPRESSO: a modular and open-source software project for quantum simulations of materials},
  author={Giannozzi, Paolo and others},
  journal={Journal of Physics: Condensed Matter},
  volume={21},
  number={39},
  pages={395502},
  year={2009}
}`

// Options are read from the parse context
type Options struct {
	QualityReport bool `mapstructure:"quality_report"`
}

// Record is the metadata extracted from one calculation
type Record struct {
	Code       string            `json:"code" jsonschema:"enum=vasp,enum=pwscf"`
	Files      []string          `json:"files"`
	FileTypes  map[string]string `json:"file_types,omitempty" jsonschema:"description=Base name to VASP file family"`
	System     string            `json:"system,omitempty"`
	Settings   map[string]string `json:"settings,omitempty" jsonschema:"description=Input tags (INCAR or PWSCF namelists)"`
	Energy     *float64          `json:"energy,omitempty" jsonschema:"description=Final total energy in eV"`
	IonicSteps int               `json:"ionic_steps,omitempty"`
	Missing    []string          `json:"missing,omitempty" jsonschema:"description=Standard inputs absent from the group"`
}

// Parser extracts DFT calculation metadata
type Parser struct {
	extract.Base
	policy grouping.SignaturePolicy
}

// New creates a DFT parser
func New() *Parser {
	return &Parser{
		policy: grouping.SignaturePolicy{Vocabulary: VASPFiles},
	}
}

// Describe returns the parser documentation
func (p *Parser) Describe() string {
	return `Extract data from Density Functional Theory calculation results

Supports VASP (OUTCAR, INCAR, OSZICAR, POSCAR, ...) and PWSCF output files.`
}

// Version returns the parser version
func (p *Parser) Version() string {
	return "0.1.0"
}

// Implementors returns the points of contact
func (p *Parser) Implementors() []string {
	return []string{"Materials IO Maintainers"}
}

// Citations returns the references for the supported codes
func (p *Parser) Citations() []string {
	return []string{vaspCitation, pwscfCitation}
}

// Schema describes Record
func (p *Parser) Schema() *jsonschema.Schema {
	return extract.ReflectSchema(&Record{})
}

// Group groups VASP files by signature, then the rest by directory
func (p *Parser) Group(files, dirs []string, ctx model.Context) iter.Seq[model.FileGroup] {
	return p.policy.Group(files, dirs, ctx)
}

// Parse extracts a Record from a VASP or PWSCF group
func (p *Parser) Parse(group model.FileGroup, ctx model.Context) (model.Record, error) {
	if len(group) == 0 {
		return nil, model.Unparsable("empty group")
	}

	var opts Options
	if err := extract.DecodeOptions(ctx, &opts); err != nil {
		return nil, err
	}

	types := make(map[string]string)
	for _, path := range group {
		if family, ok := p.policy.Prefix(filepath.Base(path)); ok {
			types[path] = family
		}
	}

	var (
		rec *Record
		err error
	)
	if len(types) > 0 {
		rec, err = parseVASP(group, types, opts)
	} else {
		rec, err = parsePWSCF(group)
	}
	if err != nil {
		return nil, err
	}

	return extract.ToRecord(rec)
}

func parseVASP(group model.FileGroup, types map[string]string, opts Options) (*Record, error) {
	rec := &Record{
		Code:      "vasp",
		Files:     group.Basenames(),
		FileTypes: make(map[string]string, len(types)),
	}

	byFamily := make(map[string]string)
	for _, path := range group {
		family, ok := types[path]
		if !ok {
			continue
		}
		rec.FileTypes[filepath.Base(path)] = family
		if _, seen := byFamily[family]; !seen {
			byFamily[family] = path
		}
	}

	if path, ok := byFamily["incar"]; ok {
		settings, err := readINCAR(path)
		if err != nil {
			return nil, err
		}
		rec.Settings = settings
	}

	if path, ok := byFamily["outcar"]; ok {
		energy, steps, err := readOUTCAR(path)
		if err != nil {
			return nil, err
		}
		rec.Energy, rec.IonicSteps = energy, steps
	}

	if path, ok := byFamily["oszicar"]; ok && rec.Energy == nil {
		energy, steps, err := readOSZICAR(path)
		if err != nil {
			return nil, err
		}
		rec.Energy, rec.IonicSteps = energy, steps
	}

	for _, family := range []string{"contcar", "poscar"} {
		if path, ok := byFamily[family]; ok && rec.System == "" {
			system, err := firstLine(path)
			if err != nil {
				return nil, err
			}
			rec.System = system
		}
	}

	if opts.QualityReport {
		for _, family := range requiredVASPFiles {
			if _, ok := byFamily[family]; !ok {
				rec.Missing = append(rec.Missing, strings.ToUpper(family))
			}
		}
	}

	return rec, nil
}

func parsePWSCF(group model.FileGroup) (*Record, error) {
	rec := &Record{
		Code:     "pwscf",
		Files:    group.Basenames(),
		Settings: make(map[string]string),
	}

	found := false
	for _, path := range group {
		text, err := isText(path)
		if err != nil {
			return nil, err
		}
		if !text {
			continue
		}

		isOutput, err := readPWSCF(path, rec)
		if err != nil {
			return nil, err
		}
		found = found || isOutput
	}

	if !found {
		return nil, model.Unparsable("no VASP or PWSCF files in %s", group.Dir())
	}
	if len(rec.Settings) == 0 {
		rec.Settings = nil
	}
	return rec, nil
}

// isText reports whether path sniffs as text. Binary companions such as
// charge densities and wavefunctions are never PWSCF input or output.
func isText(path string) (bool, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("detect %s: %w", filepath.Base(path), err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true, nil
		}
	}
	return false, nil
}

// readPWSCF collects energies from PWSCF output and namelist settings from
// input files. It reports whether path is a PWSCF output. A file with lines
// too long to be PWSCF text stops being read but is not an error.
func readPWSCF(path string, rec *Record) (bool, error) {
	isOutput := false
	inNamelist := false

	err := scanLines(path, func(line string) bool {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case strings.Contains(line, "Program PWSCF"):
			isOutput = true
		case strings.HasPrefix(trimmed, "!") && strings.Contains(lower, "total energy"):
			if v, ok := valueAfter(trimmed, "="); ok {
				energy := v * rydbergToEV
				rec.Energy = &energy
				rec.IonicSteps++
			}
		case strings.HasPrefix(lower, "&"):
			inNamelist = true
		case trimmed == "/":
			inNamelist = false
		case inNamelist:
			for _, assignment := range strings.Split(trimmed, ",") {
				key, value, ok := strings.Cut(assignment, "=")
				if !ok {
					continue
				}
				key = strings.TrimSpace(key)
				value = strings.Trim(strings.TrimSpace(value), `'"`)
				if key == "" {
					continue
				}
				rec.Settings[key] = value
				if strings.EqualFold(key, "title") {
					rec.System = value
				}
			}
		}
		return true
	})
	if errors.Is(err, bufio.ErrTooLong) {
		return isOutput, nil
	}
	return isOutput, err
}

func readINCAR(path string) (map[string]string, error) {
	settings := make(map[string]string)

	err := scanLines(path, func(line string) bool {
		if i := strings.IndexAny(line, "#!"); i >= 0 {
			line = line[:i]
		}
		for _, assignment := range strings.Split(line, ";") {
			key, value, ok := strings.Cut(assignment, "=")
			if !ok {
				continue
			}
			key = strings.ToUpper(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			settings[key] = strings.TrimSpace(value)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// readOUTCAR returns the last "free energy TOTEN" and how many were printed
func readOUTCAR(path string) (*float64, int, error) {
	var (
		energy *float64
		steps  int
	)

	err := scanLines(path, func(line string) bool {
		if !strings.Contains(line, "free  energy   TOTEN") {
			return true
		}
		if v, ok := valueAfter(line, "="); ok {
			energy = &v
			steps++
		}
		return true
	})
	return energy, steps, err
}

// readOSZICAR returns the last "F=" energy and the number of ionic steps
func readOSZICAR(path string) (*float64, int, error) {
	var (
		energy *float64
		steps  int
	)

	err := scanLines(path, func(line string) bool {
		if v, ok := valueAfter(line, "F="); ok {
			energy = &v
			steps++
		}
		return true
	})
	return energy, steps, err
}

func firstLine(path string) (string, error) {
	var first string
	err := scanLines(path, func(line string) bool {
		first = strings.TrimSpace(line)
		return false
	})
	return first, err
}

// valueAfter parses the first number following marker
func valueAfter(line, marker string) (float64, bool) {
	i := strings.Index(line, marker)
	if i < 0 {
		return 0, false
	}
	fields := strings.Fields(line[i+len(marker):])
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// scanLines feeds fn each line of path until fn returns false
func scanLines(path string, fn func(line string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if !fn(scanner.Text()) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}
