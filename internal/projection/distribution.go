package projection

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/nhl-picks/internal/models"
)

// ProbOver returns P(X > line) for the distribution. For integer lines this
// is strictly greater than, so a line of 3 and a line of 3.5 agree.
func ProbOver(d models.ProjectedDistribution, line float64) float64 {
	switch d.Model {
	case models.ModelPoisson:
		return poissonOver(d.Params[models.ParamLambda], line)
	case models.ModelNegativeBinomial:
		return negBinOver(d.Params[models.ParamLambda], d.Params[models.ParamDispersion], line)
	case models.ModelBernoulli:
		return bernoulliOver(d.Params[models.ParamProbability], line)
	default:
		return math.NaN()
	}
}

// ProbAtLeast returns P(X >= k)
func ProbAtLeast(d models.ProjectedDistribution, k int) float64 {
	return ProbOver(d, float64(k)-0.5)
}

// Variance returns the distribution's variance
func Variance(d models.ProjectedDistribution) float64 {
	switch d.Model {
	case models.ModelPoisson:
		return d.Params[models.ParamLambda]
	case models.ModelNegativeBinomial:
		mu := d.Params[models.ParamLambda]
		return mu + mu*mu/d.Params[models.ParamDispersion]
	case models.ModelBernoulli:
		p := d.Params[models.ParamProbability]
		return p * (1 - p)
	default:
		return math.NaN()
	}
}

// FairOdds converts a probability into a decimal price with no margin
func FairOdds(p float64) float64 {
	if p <= 0 {
		return math.Inf(1)
	}
	return 1 / p
}

func poissonOver(lambda, line float64) float64 {
	k := math.Floor(line)
	if k < 0 {
		return 1
	}
	return clamp01(1 - distuv.Poisson{Lambda: lambda}.CDF(k))
}

// negBinOver uses P(X <= k) = I_p(r, k+1) with p = r/(r+mu).
func negBinOver(mu, r, line float64) float64 {
	k := math.Floor(line)
	if k < 0 {
		return 1
	}
	p := r / (r + mu)
	return clamp01(1 - mathext.RegIncBeta(r, k+1, p))
}

func bernoulliOver(p, line float64) float64 {
	switch {
	case line < 0:
		return 1
	case line < 1:
		return p
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
