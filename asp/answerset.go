package asp

// AnswerSet is one answer set in raw form: predicate name to the list of
// argument tuples of its ground atoms. All constants are strings; integer
// conversion happens explicitly during output mapping. The solver has
// already deduplicated ground atoms, so a list is sufficient.
//
// Quoted and unquoted constants collapse to the same Go string here. The
// library only ever generates quoted strings during input mapping; keeping
// the two apart in an ASP program is the programmer's responsibility.
type AnswerSet map[string][][]string

// Add appends one ground atom.
func (a AnswerSet) Add(predicate string, args []string) {
	a[predicate] = append(a[predicate], args)
}

// Tuples returns the argument tuples for predicate, or nil.
func (a AnswerSet) Tuples(predicate string) [][]string {
	return a[predicate]
}
