package qmps

// OpType is the kind of an operation in a circuit stream.
type OpType int

const (
	OpGate OpType = iota
	OpMeasure
	OpReset
	OpInitialize
	OpSnapshot
	OpBarrier
	OpBFunc
	OpROError
	OpMatrix
	OpKraus
)

var opTypeNames = map[OpType]string{
	OpGate:       "gate",
	OpMeasure:    "measure",
	OpReset:      "reset",
	OpInitialize: "initialize",
	OpSnapshot:   "snapshot",
	OpBarrier:    "barrier",
	OpBFunc:      "bfunc",
	OpROError:    "roerror",
	OpMatrix:     "matrix",
	OpKraus:      "kraus",
}

func (t OpType) String() string {
	if name, ok := opTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// PauliTerm is one weighted Pauli string. The rightmost letter acts on the
// first qubit of the snapshot.
type PauliTerm struct {
	Coeff complex128
	Pauli string
}

/*
MatrixComponent is a matrix acting on a subset of a snapshot's qubits.
Qubits are positions into Op.Qubits, not register indices.
*/
type MatrixComponent struct {
	Qubits []int
	Mat    [][]complex128
}

// MatrixTerm weights its components by Coeff. Each component is measured
// on its own subset and the values are summed.
type MatrixTerm struct {
	Coeff      complex128
	Components []MatrixComponent
}

/*
Op is a single instruction produced by a circuit compiler. The dispatcher
only reads it.
*/
type Op struct {
	Type   OpType
	Name   string
	Qubits []int

	// Params holds gate angles (real parts are used) and, for initialize
	// and diagonal matrix operations, the amplitude or diagonal vector.
	Params []complex128
	Mats   [][][]complex128

	// Memory and Registers are the classical bits a measurement writes to.
	Memory    []int
	Registers []int

	Conditional    bool
	ConditionalReg int

	Label        string
	ExpvalPauli  []PauliTerm
	ExpvalMatrix []MatrixTerm

	// bfunc: compare (register & Mask) against Target with Relation and
	// store the result in Registers[0] (and Memory[0] when given).
	// Mask and Target are hex strings such as "0x3".
	Mask     string
	Target   string
	Relation string

	// roerror: Probs[outcome] is the distribution of the recorded outcome.
	Probs [][]float64
}
