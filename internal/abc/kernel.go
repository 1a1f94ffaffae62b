package abc

// Scale declares how kernel return values are to be interpreted by the
// host framework.
type Scale string

// ScaleLog marks log-scaled kernel values.
const ScaleLog Scale = "log"

// KernelFunc scores a simulated result x against the observed data x0
// at generation t with parameters par, conforming to the host
// framework's kernel signature.
type KernelFunc func(x, x0 Result, t int, par map[string]float64) float64

// StochasticKernel plugs a kernel function into the host framework's
// acceptance-kernel abstraction.
type StochasticKernel struct {
	Fun      KernelFunc
	RetScale Scale
}

// CreateKernel returns the acceptance kernel matching CreateModel: the
// kernel value is the log-likelihood the engine already computed.
func (imp *Importer) CreateKernel() StochasticKernel {
	return StochasticKernel{
		Fun: func(x, x0 Result, t int, par map[string]float64) float64 {
			llh, _ := x[LLHKey].(float64)
			return llh
		},
		RetScale: ScaleLog,
	}
}
