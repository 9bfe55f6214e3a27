// Package arima fits autoregressive integrated models, ARIMA(p, d, 0), by
// conditional least squares. Fitting is deterministic.
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"StockSense/internal/domain/models"
)

// ErrUnsupportedOrder is returned for orders the estimator cannot fit.
var ErrUnsupportedOrder = errors.New("unsupported model order")

// maxCondition bounds the lag matrix condition number. Repeating or
// sign-flipping differences land near 1/eps, far above this.
const maxCondition = 1e12

// MinObservations is the shortest series Fit accepts for AR order p and
// differencing d: after differencing there are more regression rows than
// coefficients.
func MinObservations(p, d int) int {
	return 2*p + d + 1
}

// Model is an ARIMA(p, d, 0) model. It is not safe for concurrent use.
type Model struct {
	p, d int

	coef []float64
	// tails[k] holds the trailing values of the k-times differenced series,
	// tails[d] is the stationary series the AR part runs on.
	tails  [][]float64
	fitted bool
}

// New returns an unfitted model. Only q == 0 is supported.
func New(p, d, q int) (*Model, error) {
	if p < 1 || d < 0 {
		return nil, fmt.Errorf("%w: p=%d d=%d", ErrUnsupportedOrder, p, d)
	}
	if q != 0 {
		return nil, fmt.Errorf("%w: moving average order %d", ErrUnsupportedOrder, q)
	}
	return &Model{p: p, d: d}, nil
}

// Order returns (p, d, q).
func (m *Model) Order() (int, int, int) { return m.p, m.d, 0 }

// Coefficients returns a copy of the fitted AR coefficients, lag 1 first.
func (m *Model) Coefficients() []float64 {
	return append([]float64(nil), m.coef...)
}

// Fit estimates the AR coefficients on the d-times differenced series.
func (m *Model) Fit(series []float64) error {
	m.fitted = false
	if n, need := len(series), MinObservations(m.p, m.d); n < need {
		return fmt.Errorf("%w: need %d observations, have %d", models.ErrInsufficientData, need, n)
	}
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: series contains non-finite values", models.ErrFitFailed)
		}
	}

	levels := make([][]float64, m.d+1)
	levels[0] = append([]float64(nil), series...)
	for k := 1; k <= m.d; k++ {
		levels[k] = difference(levels[k-1])
	}
	z := levels[m.d]

	coef, err := leastSquares(z, m.p)
	if err != nil {
		return err
	}

	m.coef = coef
	m.tails = make([][]float64, m.d+1)
	for k := 0; k < m.d; k++ {
		m.tails[k] = []float64{levels[k][len(levels[k])-1]}
	}
	m.tails[m.d] = append([]float64(nil), z[len(z)-m.p:]...)
	m.fitted = true
	return nil
}

// Forecast projects steps values past the end of the fitted series.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("%w: model is not fitted", models.ErrFitFailed)
	}
	if steps < 1 {
		return nil, fmt.Errorf("forecast steps must be positive, got %d", steps)
	}

	z := append([]float64(nil), m.tails[m.d]...)
	last := make([]float64, m.d)
	for k := 0; k < m.d; k++ {
		last[k] = m.tails[k][0]
	}

	out := make([]float64, steps)
	for h := 0; h < steps; h++ {
		var next float64
		for j, c := range m.coef {
			next += c * z[len(z)-1-j]
		}
		z = append(z, next)

		// integrate back through each differencing level
		v := next
		for k := m.d - 1; k >= 0; k-- {
			v += last[k]
			last[k] = v
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: forecast diverged at step %d", models.ErrFitFailed, h+1)
		}
		out[h] = v
	}
	return out, nil
}

func difference(x []float64) []float64 {
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// leastSquares regresses z[t] on z[t-1..t-p] without an intercept.
func leastSquares(z []float64, p int) ([]float64, error) {
	rows := len(z) - p
	x := mat.NewDense(rows, p, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		t := p + i
		for j := 0; j < p; j++ {
			x.Set(i, j, z[t-1-j])
		}
		y.Set(i, 0, z[t])
	}

	var qr mat.QR
	qr.Factorize(x)
	if c := qr.Cond(); math.IsInf(c, 0) || math.IsNaN(c) || c > maxCondition {
		return nil, fmt.Errorf("%w: design matrix is singular", models.ErrFitFailed)
	}

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFitFailed, err)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.At(j, 0)
		if math.IsNaN(coef[j]) || math.IsInf(coef[j], 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", models.ErrFitFailed)
		}
	}
	return coef, nil
}
