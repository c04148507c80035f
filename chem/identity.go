// Package chem defines the molecular data model: species identities,
// quantity records and the per-compartment population map.
package chem

import (
	"fmt"
	"strings"
)

// Kind names a molecular species, e.g. "PAR-1" or "ATP".
type Kind string

// Class is the chemical classification of a species.
type Class uint8

const (
	Protein              Class = iota // any amino acid chain
	AminoAcid                         // single amino acid
	GeneticPolymer                    // DNA
	MessengerTranscript               // mRNA
	AdaptorTranscript                 // tRNA
	StructuralTranscript              // rRNA
	SmallNucleotide                   // ATP, GTP, dATP, ...
	Lipid
	Ion
	Other
)

var classNames = [...]string{
	Protein:              "protein",
	AminoAcid:            "amino_acid",
	GeneticPolymer:       "genetic_polymer",
	MessengerTranscript:  "messenger_transcript",
	AdaptorTranscript:    "adaptor_transcript",
	StructuralTranscript: "structural_transcript",
	SmallNucleotide:      "small_nucleotide",
	Lipid:                "lipid",
	Ion:                  "ion",
	Other:                "other",
}

// String returns the snake_case name used in config and CSV files.
func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ParseClass converts a class name back to a Class.
func ParseClass(s string) (Class, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range classNames {
		if name == s {
			return Class(i), nil
		}
	}
	return Other, fmt.Errorf("unknown chemical class %q", s)
}

// Variant is the organism a species belongs to.
type Variant uint8

const (
	Human Variant = iota
	CElegans
)

var variantNames = [...]string{
	Human:    "human",
	CElegans: "c_elegans",
}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// ParseVariant converts an organism name back to a Variant.
// The empty string maps to Human.
func ParseVariant(s string) (Variant, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Human, nil
	}
	for i, name := range variantNames {
		if name == s {
			return Variant(i), nil
		}
	}
	return Human, fmt.Errorf("unknown organism variant %q", s)
}

// Identity is the immutable key of a molecular species. Two identities are
// equal only if kind, class and variant all match, so the same protein under
// a different organism is a distinct entity.
type Identity struct {
	Kind    Kind
	Class   Class
	Variant Variant
}

// NewIdentity builds an Identity.
func NewIdentity(kind Kind, class Class, variant Variant) Identity {
	return Identity{Kind: kind, Class: class, Variant: variant}
}

// ProteinOf is shorthand for a protein identity.
func ProteinOf(kind Kind, variant Variant) Identity {
	return Identity{Kind: kind, Class: Protein, Variant: variant}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Kind, id.Class, id.Variant)
}

// ParseIdentity builds an Identity from its textual parts.
func ParseIdentity(kind, class, variant string) (Identity, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return Identity{}, fmt.Errorf("empty species kind")
	}
	c, err := ParseClass(class)
	if err != nil {
		return Identity{}, err
	}
	v, err := ParseVariant(variant)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Kind: Kind(kind), Class: c, Variant: v}, nil
}
