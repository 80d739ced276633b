package qmps

import (
	"math/rand/v2"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

/*
ClassicalRegister holds the measured memory bits and the register bits that
conditional operations test. Bit i of either array is index i.
*/
type ClassicalRegister struct {
	memory   []uint8
	register []uint8
}

// NewClassicalRegister returns cleared memory and register bit arrays.
func NewClassicalRegister(memoryBits, registerBits int) *ClassicalRegister {
	return &ClassicalRegister{
		memory:   make([]uint8, memoryBits),
		register: make([]uint8, registerBits),
	}
}

func (c *ClassicalRegister) MemoryBits() int   { return len(c.memory) }
func (c *ClassicalRegister) RegisterBits() int { return len(c.register) }

// CheckConditional reports whether op should run.
func (c *ClassicalRegister) CheckConditional(op Op) (bool, error) {
	if !op.Conditional {
		return true, nil
	}
	if op.ConditionalReg < 0 || op.ConditionalReg >= len(c.register) {
		return false, errors.Wrapf(
			ErrMalformedOperation,
			"%s: conditional register bit %d of %d", op.Name, op.ConditionalReg, len(c.register),
		)
	}
	return c.register[op.ConditionalReg] == 1, nil
}

// checkTargets validates the bits a measurement of n qubits writes to.
func (c *ClassicalRegister) checkTargets(n int, memory, registers []int) error {
	if len(memory) > 0 && len(memory) != n {
		return errors.Wrapf(ErrMalformedOperation, "%d memory bits for %d outcomes", len(memory), n)
	}
	if len(registers) > 0 && len(registers) != n {
		return errors.Wrapf(ErrMalformedOperation, "%d register bits for %d outcomes", len(registers), n)
	}
	for _, b := range memory {
		if b < 0 || b >= len(c.memory) {
			return errors.Wrapf(ErrMalformedOperation, "memory bit %d of %d", b, len(c.memory))
		}
	}
	for _, b := range registers {
		if b < 0 || b >= len(c.register) {
			return errors.Wrapf(ErrMalformedOperation, "register bit %d of %d", b, len(c.register))
		}
	}
	return nil
}

// StoreMeasure writes outcome[i] to memory[i] and registers[i].
func (c *ClassicalRegister) StoreMeasure(outcome, memory, registers []int) error {
	if err := c.checkTargets(len(outcome), memory, registers); err != nil {
		return err
	}
	for i, b := range memory {
		c.memory[b] = uint8(outcome[i])
	}
	for i, b := range registers {
		c.register[b] = uint8(outcome[i])
	}
	return nil
}

func parseHex(s string) (*uint256.Int, error) {
	digits := strings.TrimLeft(strings.TrimPrefix(strings.ToLower(s), "0x"), "0")
	if digits == "" {
		digits = "0"
	}
	return uint256.FromHex("0x" + digits)
}

func (c *ClassicalRegister) registerValue() *uint256.Int {
	v := new(uint256.Int)
	one := uint256.NewInt(1)
	for i := len(c.register) - 1; i >= 0; i-- {
		v.Lsh(v, 1)
		if c.register[i] == 1 {
			v.Or(v, one)
		}
	}
	return v
}

/*
ApplyBFunc compares (register & Mask) with Target using Relation and writes
the result to Registers[0], and to Memory[0] when one is given. Registers
wider than 256 bits are rejected.
*/
func (c *ClassicalRegister) ApplyBFunc(op Op) error {
	if len(c.register) > 256 {
		return errors.Wrapf(ErrMalformedOperation, "bfunc on a %d-bit register", len(c.register))
	}
	if len(op.Registers) == 0 {
		return errors.Wrap(ErrMalformedOperation, "bfunc without a result register bit")
	}
	if err := c.checkTargets(1, op.Memory, op.Registers[:1]); err != nil {
		return err
	}

	mask, err := parseHex(op.Mask)
	if err != nil {
		return errors.Wrapf(ErrMalformedOperation, "bfunc mask %q: %v", op.Mask, err)
	}
	target, err := parseHex(op.Target)
	if err != nil {
		return errors.Wrapf(ErrMalformedOperation, "bfunc target %q: %v", op.Target, err)
	}

	cmp := new(uint256.Int).And(c.registerValue(), mask).Cmp(target)

	var outcome bool
	switch op.Relation {
	case "==":
		outcome = cmp == 0
	case "!=":
		outcome = cmp != 0
	case "<":
		outcome = cmp < 0
	case "<=":
		outcome = cmp <= 0
	case ">":
		outcome = cmp > 0
	case ">=":
		outcome = cmp >= 0
	default:
		return errors.Wrapf(ErrMalformedOperation, "bfunc relation %q", op.Relation)
	}

	var bit uint8
	if outcome {
		bit = 1
	}
	c.register[op.Registers[0]] = bit
	if len(op.Memory) > 0 {
		c.memory[op.Memory[0]] = bit
	}
	return nil
}

/*
ApplyROError replaces the measured value of op.Memory with a draw from
op.Probs[value], and writes the same noisy bits to op.Registers.
*/
func (c *ClassicalRegister) ApplyROError(op Op, rng *rand.Rand) error {
	n := len(op.Memory)
	if err := c.checkTargets(n, op.Memory, op.Registers); err != nil {
		return err
	}
	if len(op.Probs) != 1<<n {
		return errors.Wrapf(ErrMalformedOperation, "roerror with %d rows for %d bits", len(op.Probs), n)
	}

	value := 0
	for i, b := range op.Memory {
		value |= int(c.memory[b]) << i
	}

	noisy := sampleIndex(op.Probs[value], rng.Float64())
	for i, b := range op.Memory {
		c.memory[b] = uint8(noisy >> i & 1)
	}
	for i, b := range op.Registers {
		c.register[b] = uint8(noisy >> i & 1)
	}
	return nil
}

// sampleIndex returns the first index whose cumulative weight exceeds r.
func sampleIndex(probs []float64, r float64) int {
	var accum float64
	for i, p := range probs {
		accum += p
		if accum > r {
			return i
		}
	}
	return len(probs) - 1
}

// MemoryHex renders the memory bits as a hex string, "0x0" when empty.
func (c *ClassicalRegister) MemoryHex() string {
	return bitsHex(c.memory)
}

func (c *ClassicalRegister) RegisterHex() string {
	return bitsHex(c.register)
}

func bitsHex(bits []uint8) string {
	const digits = "0123456789abcdef"

	var sb strings.Builder
	sb.WriteString("0x")

	leading := true
	for top := (len(bits) + 3) / 4 * 4; top > 0; top -= 4 {
		nibble := 0
		for b := top - 1; b >= top-4; b-- {
			nibble <<= 1
			if b < len(bits) && bits[b] == 1 {
				nibble |= 1
			}
		}
		if leading && nibble == 0 {
			continue
		}
		leading = false
		sb.WriteByte(digits[nibble])
	}

	if leading {
		sb.WriteByte('0')
	}
	return sb.String()
}
