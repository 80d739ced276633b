package main

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/theapemachine/qmps"
)

// Job is one batch of random bits.
type Job struct {
	Qubits   int
	Shots    int
	Seed     uint64
	Out      string
	PoolFile string
}

func newSeed() uint64 {
	return rand.Uint64()
}

/*
Run puts every qubit in uniform superposition, samples the shots and
writes them out. It returns how often each bitstring came up.
*/
func (j Job) Run(ctx context.Context, config *qmps.Config) (map[string]int, error) {
	if j.Qubits < 1 || j.Shots < 1 {
		return nil, errors.Errorf("need at least one qubit and one shot, got %d and %d", j.Qubits, j.Shots)
	}

	state, err := qmps.NewState(config)
	if err != nil {
		return nil, err
	}
	if err := state.InitializeQreg(j.Qubits); err != nil {
		return nil, err
	}
	if err := state.InitializeCreg(j.Qubits, j.Qubits); err != nil {
		return nil, err
	}

	qubits := make([]int, j.Qubits)
	ops := make([]qmps.Op, j.Qubits)
	for q := range qubits {
		qubits[q] = q
		ops[q] = qmps.Op{Type: qmps.OpGate, Name: "h", Qubits: []int{q}}
	}

	rng := rand.New(rand.NewPCG(j.Seed, j.Seed>>32|j.Seed<<32))
	if err := state.ApplyOps(ctx, ops, qmps.NewExperimentResult(), rng, true); err != nil {
		return nil, errors.Wrap(err, "preparing superposition")
	}

	samples, err := state.SampleMeasure(ctx, qubits, j.Shots, rng)
	if err != nil {
		return nil, err
	}

	bitstrings := make([]string, len(samples))
	counts := make(map[string]int)
	for k, sample := range samples {
		bitstrings[k] = bitstring(sample)
		counts[bitstrings[k]]++
	}

	if err := j.write(bitstrings); err != nil {
		return nil, err
	}
	return counts, nil
}

// bitstring renders a sample with the highest qubit first.
func bitstring(sample []int) string {
	var sb strings.Builder
	for i := len(sample) - 1; i >= 0; i-- {
		sb.WriteByte(byte('0' + sample[i]))
	}
	return sb.String()
}

func (j Job) write(bitstrings []string) error {
	shotFile := j.Out + ".txt"
	if err := os.WriteFile(shotFile, []byte(strings.Join(bitstrings, ",")+"\n"), 0o644); err != nil {
		return errors.Wrap(err, "writing shots")
	}

	if j.PoolFile != "" {
		pool, err := os.OpenFile(j.PoolFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "opening bit pool")
		}
		_, err = io.WriteString(pool, strings.Join(bitstrings, ""))
		if cerr := pool.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrap(err, "appending to bit pool")
		}
	}

	return zipFile(j.Out+".zip", shotFile)
}

func zipFile(archive, name string) error {
	out, err := os.Create(archive)
	if err != nil {
		return errors.Wrap(err, "creating archive")
	}
	defer out.Close()

	in, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "opening shot file")
	}
	defer in.Close()

	zw := zip.NewWriter(out)
	w, err := zw.Create(filepath.Base(name))
	if err != nil {
		return errors.Wrap(err, "adding shot file")
	}
	if _, err := io.Copy(w, in); err != nil {
		return errors.Wrap(err, "compressing shot file")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "closing archive")
	}
	return out.Close()
}

func printCounts(w io.Writer, counts map[string]int, shots int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Outcome", "Count", "Frequency"})
	for _, k := range keys {
		table.Append([]string{
			k,
			fmt.Sprint(counts[k]),
			fmt.Sprintf("%.4f", float64(counts[k])/float64(shots)),
		})
	}
	table.SetFooter([]string{"", fmt.Sprint(shots), ""})
	table.Render()
}
