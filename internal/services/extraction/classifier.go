package extraction

import "strings"

// Lexicon is a subject and the domain terms that vote for it.
type Lexicon struct {
	Subject  Subject
	Keywords []string
}

// DefaultLexicons are scored in this order; on equal scores the earlier
// lexicon wins, giving Physics > Chemistry > Biology.
//
// Keywords are matched as lower-case substrings, so short stems that occur
// inside unrelated words ("organ" in "organic", "rna" in "internal") are
// left out. " amine" and " ester" carry a leading space so that "examine"
// and "cholesterol" do not count.
var DefaultLexicons = []Lexicon{
	{
		Subject: SubjectPhysics,
		Keywords: []string{
			"force", "velocity", "acceleration", "momentum", "newton", "joule",
			"watt", "pascal", "friction", "gravitation", "gravity", "displacement",
			"kinetic energy", "potential energy", "work done", "torque", "projectile",
			"current", "voltage", "resistance", "resistor", "capacitor", "capacitance",
			"inductance", "magnetic field", "electric field", "ohm", "ampere",
			"lens", "refraction", "reflection", "wavelength", "frequency",
			"oscillation", "pendulum", "amplitude", "photoelectric", "semiconductor",
			"diode", "transistor", "circuit", "speed of light", "young's modulus",
			"viscosity", "surface tension", "doppler", "interference", "diffraction",
		},
	},
	{
		Subject: SubjectChemistry,
		Keywords: []string{
			"mole", "molar", "molecule", "atomic", "compound", "reaction",
			"oxidation", "reduction", "redox", "acid", "alkali", "alkane", "alkene",
			"alkyne", "benzene", "covalent", "ionic", "electronegativity", "orbital",
			"hybridization", "hybridisation", "isomer", "catalyst", "titration",
			"hydrocarbon", "alcohol", "aldehyde", "ketone", " ester", "polymer",
			"periodic table", "valence", "oxide", "enthalpy", "entropy",
			"electrolysis", "stoichiometry", "ligand", "coordination compound",
			"carbonyl", " amine", "carboxylic", "iupac", "ph of", "buffer solution",
			"equilibrium constant", "organic",
		},
	},
	{
		Subject: SubjectBiology,
		Keywords: []string{
			"cell", "organelle", "mitochondria", "nucleus", "chromosome", "genes",
			"genetic", "dna", "mrna", "trna", "protein", "enzyme", "photosynthesis",
			"chlorophyll", "respiration", "tissue", "organism", "ribosome", "golgi",
			"plant", "animal", "species", "evolution", "ecosystem", "hormone",
			"blood", "heart", "kidney", "neuron", "digestion", "reproduction",
			"pollination", "mendel", "mutation", "bacteria", "virus", "fungi",
			"taxonomy", "meiosis", "mitosis", "vitamin", "insulin", "xylem",
			"phloem", "stomata", "allele", "phenotype", "genotype", "endoplasmic",
		},
	},
}

// Classify assigns the subject whose lexicon has the most distinct keywords
// present in text. It always returns a subject; with no hits at all the
// tie-break yields Physics.
func Classify(text string, lexicons []Lexicon) Subject {
	// Collapsed whitespace with a leading space lets " amine" match at the
	// start of the text or of a line.
	lower := " " + strings.Join(strings.Fields(strings.ToLower(text)), " ")

	best := SubjectPhysics
	bestScore := -1
	for _, lex := range lexicons {
		score := LexiconScore(lower, lex.Keywords)
		// Strictly greater keeps the earlier lexicon on ties.
		if score > bestScore {
			best, bestScore = lex.Subject, score
		}
	}
	return best
}

// LexiconScore counts how many distinct keywords occur in lowerText.
func LexiconScore(lowerText string, keywords []string) int {
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		if strings.Contains(lowerText, kw) {
			seen[kw] = struct{}{}
		}
	}
	return len(seen)
}
