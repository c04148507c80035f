package chem

// ATP is the default energy currency.
var ATP = Identity{Kind: "ATP", Class: SmallNucleotide, Variant: Human}

// ChargingPair links an uncharged adaptor transcript to its charged form.
type ChargingPair struct {
	Uncharged Identity
	Charged   Identity
}

// trnaKinds lists the uncharged tRNA species; the charged form carries a
// "_CHARGED" suffix.
var trnaKinds = [...]Kind{
	"TRNA_MET_ATG",
	"TRNA_GLY_GGA", "TRNA_GLY_GGT",
	"TRNA_ALA_GCA", "TRNA_ALA_GCC",
	"TRNA_LEU_CTG", "TRNA_LEU_CTC",
	"TRNA_SER_TCA", "TRNA_SER_TCG",
	"TRNA_VAL_GTG", "TRNA_VAL_GTC",
	"TRNA_PRO_CCA", "TRNA_THR_ACA",
	"TRNA_ASP_GAC", "TRNA_GLU_GAG",
	"TRNA_LYS_AAG", "TRNA_ARG_CGA",
	"TRNA_HIS_CAC", "TRNA_PHE_TTC",
	"TRNA_TYR_TAC", "TRNA_CYS_TGC",
	"TRNA_TRP_TGG", "TRNA_ASN_AAC",
	"TRNA_GLN_CAG", "TRNA_ILE_ATC",
}

// ChargedKind returns the kind name of the charged form of k.
func ChargedKind(k Kind) Kind {
	return k + "_CHARGED"
}

// TRNAChargingPairs returns the standard set of tRNA charging pairs for variant.
func TRNAChargingPairs(variant Variant) []ChargingPair {
	pairs := make([]ChargingPair, len(trnaKinds))
	for i, k := range trnaKinds {
		pairs[i] = ChargingPair{
			Uncharged: Identity{Kind: k, Class: AdaptorTranscript, Variant: variant},
			Charged:   Identity{Kind: ChargedKind(k), Class: AdaptorTranscript, Variant: variant},
		}
	}
	return pairs
}
