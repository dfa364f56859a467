package prior

import (
	"math"
	"math/rand"
	"testing"
)

const tol = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestUniform_TransformUnit(t *testing.T) {
	p := NewUniform(-2.0, 2.0)

	tests := []struct {
		u    float64
		want float64
	}{
		{0.0, -2.0},
		{0.5, 0.0},
		{1.0, 2.0},
		{0.25, -1.0},
	}
	for _, tt := range tests {
		if got := p.TransformUnit(tt.u); !approxEqual(got, tt.want, tol) {
			t.Errorf("TransformUnit(%g)=%g, want %g", tt.u, got, tt.want)
		}
	}
}

func TestUniform_LogPDF(t *testing.T) {
	p := NewUniform(0.0, 4.0)

	if got := p.LogPDF(2.0); !approxEqual(got, -math.Log(4.0), tol) {
		t.Errorf("LogPDF(2.0)=%g, want %g", got, -math.Log(4.0))
	}
	if got := p.LogPDF(5.0); !math.IsInf(got, -1) {
		t.Errorf("LogPDF outside support=%g, want -Inf", got)
	}
	if got := p.LogPDF(-0.1); !math.IsInf(got, -1) {
		t.Errorf("LogPDF below support=%g, want -Inf", got)
	}
}

func TestUniform_MeanWidthLimits(t *testing.T) {
	p := NewUniform(1.0, 3.0)
	if got := p.Mean(); !approxEqual(got, 2.0, tol) {
		t.Errorf("Mean=%g, want 2", got)
	}
	if got := p.Width(); !approxEqual(got, 2.0, tol) {
		t.Errorf("Width=%g, want 2", got)
	}
	lo, hi, ok := p.Limits()
	if !ok || lo != 1.0 || hi != 3.0 {
		t.Errorf("Limits=(%g,%g,%v), want (1,3,true)", lo, hi, ok)
	}
}

func TestLogUniform_TransformUnit(t *testing.T) {
	// Spans four decades; the log-space midpoint is 1.0.
	p := NewLogUniform(0.01, 100.0)

	if got := p.TransformUnit(0.5); !approxEqual(got, 1.0, 1e-9) {
		t.Errorf("TransformUnit(0.5)=%g, want 1.0", got)
	}
	if got := p.TransformUnit(0.0); !approxEqual(got, 0.01, 1e-12) {
		t.Errorf("TransformUnit(0)=%g, want 0.01", got)
	}
	if got := p.TransformUnit(1.0); !approxEqual(got, 100.0, 1e-9) {
		t.Errorf("TransformUnit(1)=%g, want 100", got)
	}
	// One quarter of the way spans one decade.
	if got := p.TransformUnit(0.25); !approxEqual(got, 0.1, 1e-10) {
		t.Errorf("TransformUnit(0.25)=%g, want 0.1", got)
	}
}

func TestLogUniform_LogPDF(t *testing.T) {
	p := NewLogUniform(0.1, 10.0)

	want := -math.Log(1.0) - math.Log(math.Log(100.0))
	if got := p.LogPDF(1.0); !approxEqual(got, want, tol) {
		t.Errorf("LogPDF(1.0)=%g, want %g", got, want)
	}
	if got := p.LogPDF(0.01); !math.IsInf(got, -1) {
		t.Errorf("LogPDF outside support=%g, want -Inf", got)
	}
}

func TestLogUniform_Mean(t *testing.T) {
	p := NewLogUniform(0.01, 100.0)
	if got := p.Mean(); !approxEqual(got, 1.0, 1e-9) {
		t.Errorf("Mean=%g, want geometric mean 1.0", got)
	}
}

func TestGaussian_TransformUnit(t *testing.T) {
	p := NewGaussian(5.0, 2.0)

	if got := p.TransformUnit(0.5); !approxEqual(got, 5.0, 1e-9) {
		t.Errorf("TransformUnit(0.5)=%g, want mu", got)
	}

	// Symmetry about the mean.
	lo := p.TransformUnit(0.2)
	hi := p.TransformUnit(0.8)
	if !approxEqual(lo-5.0, -(hi - 5.0), 1e-9) {
		t.Errorf("quantiles not symmetric: %g vs %g", lo, hi)
	}
	if hi <= 5.0 {
		t.Errorf("TransformUnit(0.8)=%g, want > mu", hi)
	}
}

func TestGaussian_Limits(t *testing.T) {
	unbounded := NewGaussian(0.0, 1.0)
	if _, _, ok := unbounded.Limits(); ok {
		t.Error("zero-value limits must be inactive")
	}

	p := NewGaussianLimited(0.0, 1.0, -0.5, 0.5)
	lo, hi, ok := p.Limits()
	if !ok || lo != -0.5 || hi != 0.5 {
		t.Errorf("Limits=(%g,%g,%v), want (-0.5,0.5,true)", lo, hi, ok)
	}

	// Quantiles beyond the limits clamp to them.
	if got := p.TransformUnit(0.999); !approxEqual(got, 0.5, tol) {
		t.Errorf("TransformUnit(0.999)=%g, want clamped 0.5", got)
	}
	if got := p.TransformUnit(0.001); !approxEqual(got, -0.5, tol) {
		t.Errorf("TransformUnit(0.001)=%g, want clamped -0.5", got)
	}

	// Density vanishes outside the limits.
	if got := p.LogPDF(0.9); !math.IsInf(got, -1) {
		t.Errorf("LogPDF outside limits=%g, want -Inf", got)
	}
	if got := p.LogPDF(0.2); math.IsInf(got, -1) {
		t.Error("LogPDF inside limits should be finite")
	}
}

func TestGaussian_LogPDF(t *testing.T) {
	p := NewGaussian(0.0, 1.0)
	// Standard normal at the mean: -0.5*ln(2*pi)
	want := -0.5 * math.Log(2*math.Pi)
	if got := p.LogPDF(0.0); !approxEqual(got, want, tol) {
		t.Errorf("LogPDF(0)=%g, want %g", got, want)
	}
}

func TestDraw_Deterministic(t *testing.T) {
	priors := []Prior{
		NewUniform(-1.0, 1.0),
		NewLogUniform(0.1, 10.0),
		NewGaussian(0.0, 2.0),
		NewGaussianLimited(0.0, 2.0, -1.0, 1.0),
	}

	for _, p := range priors {
		a := rand.New(rand.NewSource(7))
		b := rand.New(rand.NewSource(7))
		for i := 0; i < 100; i++ {
			x, y := p.Draw(a), p.Draw(b)
			if x != y {
				t.Fatalf("%s: draws diverge at i=%d: %g vs %g", p.Describe(), i, x, y)
			}
			if lo, hi, ok := p.Limits(); ok && (x < lo || x > hi) {
				t.Fatalf("%s: draw %g outside limits [%g, %g]", p.Describe(), x, lo, hi)
			}
		}
	}
}

func TestDescribe_Stable(t *testing.T) {
	tests := []struct {
		p    Prior
		want string
	}{
		{NewUniform(-1.0, 1.0), "Uniform(lower=-1, upper=1)"},
		{NewLogUniform(0.01, 100.0), "LogUniform(lower=0.01, upper=100)"},
		{NewGaussian(0.5, 0.1), "Gaussian(mu=0.5, sigma=0.1)"},
		{NewGaussianLimited(0.5, 0.1, 0.0, 1.0), "Gaussian(mu=0.5, sigma=0.1, lower=0, upper=1)"},
	}
	for _, tt := range tests {
		if got := tt.p.Describe(); got != tt.want {
			t.Errorf("Describe=%q, want %q", got, tt.want)
		}
	}
}
