package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_PanicValues(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"string", "fold exploded", "fold exploded"},
		{"int", 42, "42"},
		{"error", fmt.Errorf("bad matrix"), "bad matrix"},
		{"struct", struct{ Fold int }{3}, "{3}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := func() (err error) {
				defer Recover(&err, "CrossValidate")
				panic(tt.value)
			}

			err := fn()
			var pe *PanicError
			require.True(t, As(err, &pe))
			assert.Equal(t, "CrossValidate", pe.Operation)
			assert.Equal(t, tt.want, fmt.Sprintf("%v", pe.PanicValue))
			assert.Equal(t, "panic in CrossValidate: "+tt.want, pe.Error())
		})
	}
}

func TestRecover_NoPanic(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err, "Predict")
		return nil
	}
	assert.NoError(t, fn())
}

func TestSafeExecute_ReturnsFunctionError(t *testing.T) {
	want := New("checksum mismatch")
	err := SafeExecute("LoadArtifacts", func() error { return want })
	assert.Same(t, want, err)
}

func TestPanicError_String(t *testing.T) {
	pe := NewPanicError("ServeHTTP", "nil predictor")
	s := pe.String()
	assert.True(t, strings.HasPrefix(s, "panic in ServeHTTP: nil predictor\nStack trace:\n"))
	assert.NotEmpty(t, pe.StackTrace)
}

func BenchmarkRecover_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		func() (err error) {
			defer Recover(&err, "bench")
			return nil
		}()
	}
}
