package rules

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/cytosol/chem"
)

// Rule table file names inside a catalog directory.
const (
	PhosphorylationFile   = "phosphorylation.csv"
	DephosphorylationFile = "dephosphorylation.csv"
	ComplexFormationFile  = "complex_formation.csv"
)

// PhosphorylationRow is one line of phosphorylation.csv.
type PhosphorylationRow struct {
	Kinase         string  `csv:"kinase"`
	Target         string  `csv:"target"`
	Phosphorylated string  `csv:"phosphorylated"`
	RemovalRate    float64 `csv:"removal_rate"`
	Saturation     float64 `csv:"saturation_constant"`
}

// DephosphorylationRow is one line of dephosphorylation.csv.
type DephosphorylationRow struct {
	Target         string  `csv:"target"`
	Phosphorylated string  `csv:"phosphorylated"`
	RecoveryRate   float64 `csv:"recovery_rate"`
}

// ComplexFormationRow is one line of complex_formation.csv. An empty
// complex name defaults to "First:Second".
type ComplexFormationRow struct {
	First            string  `csv:"first_protein"`
	Second           string  `csv:"second_protein"`
	BindingRate      float64 `csv:"binding_rate"`
	DissociationRate float64 `csv:"dissociation_rate"`
	Saturation       float64 `csv:"saturation_constant"`
	Complex          string  `csv:"complex_name"`
}

// LoadDir builds a catalog from the rule tables in dir. Species names are
// proteins of the given variant; energy is the currency each rule spends.
// Missing files are skipped. Rows are added in file order: phosphorylation,
// then dephosphorylation, then complex formation.
func LoadDir(dir string, variant chem.Variant, energy chem.Identity) (*Catalog, error) {
	c := NewCatalog()
	if dir == "" {
		return c, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}

	var phos []PhosphorylationRow
	if err := readTable(filepath.Join(dir, PhosphorylationFile), &phos); err != nil {
		return nil, err
	}
	for i, row := range phos {
		kinase, err := protein(row.Kinase, variant)
		if err != nil {
			return nil, rowError(PhosphorylationFile, i, err)
		}
		target, err := protein(row.Target, variant)
		if err != nil {
			return nil, rowError(PhosphorylationFile, i, err)
		}
		product, err := protein(row.Phosphorylated, variant)
		if err != nil {
			return nil, rowError(PhosphorylationFile, i, err)
		}
		c.Add(&Phosphorylation{
			Kinase: kinase, Target: target, Product: product,
			Energy:     energy,
			Rate:       row.RemovalRate,
			Saturation: row.Saturation,
			Cost:       PhosphorylationCost,
		})
	}

	var dephos []DephosphorylationRow
	if err := readTable(filepath.Join(dir, DephosphorylationFile), &dephos); err != nil {
		return nil, err
	}
	for i, row := range dephos {
		target, err := protein(row.Target, variant)
		if err != nil {
			return nil, rowError(DephosphorylationFile, i, err)
		}
		phosphorylated, err := protein(row.Phosphorylated, variant)
		if err != nil {
			return nil, rowError(DephosphorylationFile, i, err)
		}
		c.Add(&Dephosphorylation{
			Phosphorylated: phosphorylated, Target: target,
			Energy: energy,
			Rate:   row.RecoveryRate,
			Cost:   DephosphorylationCost,
		})
	}

	var complexes []ComplexFormationRow
	if err := readTable(filepath.Join(dir, ComplexFormationFile), &complexes); err != nil {
		return nil, err
	}
	for i, row := range complexes {
		first, err := protein(row.First, variant)
		if err != nil {
			return nil, rowError(ComplexFormationFile, i, err)
		}
		second, err := protein(row.Second, variant)
		if err != nil {
			return nil, rowError(ComplexFormationFile, i, err)
		}
		name := strings.TrimSpace(row.Complex)
		if name == "" {
			name = string(first.Kind) + ":" + string(second.Kind)
		}
		complexID, err := protein(name, variant)
		if err != nil {
			return nil, rowError(ComplexFormationFile, i, err)
		}
		c.Add(&ComplexFormation{
			First: first, Second: second, Complex: complexID,
			Energy:           energy,
			BindingRate:      row.BindingRate,
			DissociationRate: row.DissociationRate,
			Saturation:       row.Saturation,
			Cost:             ComplexFormationCost,
		})
	}

	return c, nil
}

// readTable decodes path into out. A missing file leaves out empty.
func readTable(path string, out any) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(r, out); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// protein validates a species name, including every part of an A:B complex.
func protein(name string, variant chem.Variant) (chem.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return chem.Identity{}, fmt.Errorf("empty protein name")
	}
	for _, part := range strings.Split(name, ":") {
		if strings.TrimSpace(part) == "" {
			return chem.Identity{}, fmt.Errorf("empty component in complex %q", name)
		}
	}
	return chem.ProteinOf(chem.Kind(name), variant), nil
}

func rowError(file string, i int, err error) error {
	// +2: header line and 1-based numbering
	return fmt.Errorf("%s line %d: %w", file, i+2, err)
}
