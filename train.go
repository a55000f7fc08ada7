package namemlp

import (
	"fmt"
	"math"
	"math/rand"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Config carries the model and training hyperparameters.
type Config struct {
	BlockSize int
	EmbedDim  int
	HiddenDim int
	BatchSize int
	MaxSteps  int

	// LearnRate applies below DecayStep, DecayRate from it onward. The
	// default boundary sits beyond the default step budget, so the decayed
	// rate is never reached unless MaxSteps is raised.
	LearnRate float64
	DecayRate float64
	DecayStep int

	// LogEvery controls progress printing; 0 disables it.
	LogEvery int
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		BlockSize: 3,
		EmbedDim:  10,
		HiddenDim: 200,
		BatchSize: 32,
		MaxSteps:  20000,
		LearnRate: 0.1,
		DecayRate: 0.01,
		DecayStep: 100000,
		LogEvery:  10000,
	}
}

// LearningRate returns the step-decayed rate for a step index.
func (c Config) LearningRate(step int) float64 {
	if step < c.DecayStep {
		return c.LearnRate
	}
	return c.DecayRate
}

// Trainer owns the parameter set and the shared generator for one run.
// The generator is consumed by parameter creation first, then by minibatch
// sampling, so a seed fixes the entire trajectory.
type Trainer struct {
	cfg    Config
	vocab  *Vocab
	g      *gorgonia.ExprGraph
	params *Params
	rng    *rand.Rand
}

// NewTrainer initializes the parameters on a fresh graph.
func NewTrainer(v *Vocab, cfg Config, seed int64) *Trainer {
	g := gorgonia.NewGraph()
	rng := rand.New(rand.NewSource(seed))
	return &Trainer{
		cfg:    cfg,
		vocab:  v,
		g:      g,
		params: NewParams(g, v.Size(), cfg, rng),
		rng:    rng,
	}
}

// Params exposes the trained parameter set.
func (t *Trainer) Params() *Params { return t.params }

// session holds the compiled training graph: minibatch placeholders with
// their reusable backings, the loss node, and the tape machine bound to
// the learnables' dual values.
type session struct {
	xs         []*gorgonia.Node
	xBacks     [][]float64
	xVals      []*tensor.Dense
	y          *gorgonia.Node
	yBack      []float64
	yVal       *tensor.Dense
	loss       *gorgonia.Node
	vm         gorgonia.VM
	learnables gorgonia.Nodes
}

// newSession builds the forward/backward graph once and compiles the tape.
func (t *Trainer) newSession() (*session, error) {
	cfg := t.cfg
	V := t.vocab.Size()
	B := cfg.BatchSize

	// One placeholder per context slot, holding a one-hot row per example,
	// so the embedding lookup becomes a matmul against the embedding table.
	s := &session{
		xs:     make([]*gorgonia.Node, cfg.BlockSize),
		xBacks: make([][]float64, cfg.BlockSize),
		xVals:  make([]*tensor.Dense, cfg.BlockSize),
	}
	for i := range s.xs {
		s.xs[i] = gorgonia.NewMatrix(t.g, tensor.Float64,
			gorgonia.WithName(fmt.Sprintf("x%d", i)),
			gorgonia.WithShape(B, V))
		s.xBacks[i] = make([]float64, B*V)
		s.xVals[i] = tensor.New(tensor.WithShape(B, V), tensor.WithBacking(s.xBacks[i]))
	}
	s.y = gorgonia.NewMatrix(t.g, tensor.Float64,
		gorgonia.WithName("y"), gorgonia.WithShape(B, V))
	s.yBack = make([]float64, B*V)
	s.yVal = tensor.New(tensor.WithShape(B, V), tensor.WithBacking(s.yBack))

	loss, err := t.buildLoss(s.xs, s.y)
	if err != nil {
		return nil, err
	}
	s.loss = loss

	s.learnables = t.params.Learnables()
	if _, err := gorgonia.Grad(loss, s.learnables...); err != nil {
		return nil, fmt.Errorf("building gradient graph: %w", err)
	}
	s.vm = gorgonia.NewTapeMachine(t.g, gorgonia.BindDualValues(s.learnables...))
	return s, nil
}

// zeroGrads clears every learnable's bound gradient. The tape machine adds
// into the dual values on each run, so without this the backward pass
// would accumulate gradients across steps.
func (s *session) zeroGrads() {
	for _, l := range s.learnables {
		grad, err := l.Grad()
		if err != nil || grad == nil {
			// Nothing bound before the first run, nothing to clear.
			continue
		}
		gd := grad.Data().([]float64)
		for i := range gd {
			gd[i] = 0
		}
	}
}

// forwardBackward binds the current minibatch backings, clears the previous
// step's gradients, reruns the tape and returns the batch loss.
func (s *session) forwardBackward() (float64, error) {
	for i, x := range s.xs {
		if err := gorgonia.Let(x, s.xVals[i]); err != nil {
			return 0, fmt.Errorf("binding context slot %d: %w", i, err)
		}
	}
	if err := gorgonia.Let(s.y, s.yVal); err != nil {
		return 0, fmt.Errorf("binding targets: %w", err)
	}

	s.vm.Reset()
	s.zeroGrads()
	if err := s.vm.RunAll(); err != nil {
		return 0, err
	}
	return s.loss.Value().Data().(float64), nil
}

// applySGD writes parameter <- parameter - lr * gradient into the stored
// values.
func (s *session) applySGD(lr float64) error {
	for _, l := range s.learnables {
		grad, err := l.Grad()
		if err != nil {
			return fmt.Errorf("gradient of %s: %w", l.Name(), err)
		}
		gd := grad.Data().([]float64)
		wd := l.Value().Data().([]float64)
		for i := range wd {
			wd[i] -= lr * gd[i]
		}
	}
	return nil
}

// Run executes the fixed-budget SGD loop: sample a minibatch with
// replacement, run the taped forward/backward pass, then write the update
// into the parameter values directly. Loss per step is recorded as log10
// in rec. Returns an error if the loss ever goes non-finite.
func (t *Trainer) Run(train *Dataset, rec *Metrics) error {
	cfg := t.cfg
	if train.Len() == 0 {
		return fmt.Errorf("empty training split")
	}
	if train.BlockSize != cfg.BlockSize {
		return fmt.Errorf("dataset block size %d does not match config %d", train.BlockSize, cfg.BlockSize)
	}

	s, err := t.newSession()
	if err != nil {
		return err
	}
	defer s.vm.Close()

	for step := 0; step < cfg.MaxSteps; step++ {
		t.fillBatch(train, s.xBacks, s.yBack, t.vocab.Size())

		lv, err := s.forwardBackward()
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		if math.IsNaN(lv) || math.IsInf(lv, 0) {
			return fmt.Errorf("step %d: non-finite loss %v", step, lv)
		}
		if cfg.LogEvery > 0 && step%cfg.LogEvery == 0 {
			fmt.Printf("%7d/%7d: loss %.4f\n", step, cfg.MaxSteps, lv)
		}
		rec.Record(lv)

		if err := s.applySGD(cfg.LearningRate(step)); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	return nil
}

// fillBatch samples BatchSize example indices uniformly with replacement
// and rewrites the one-hot minibatch backings in place.
func (t *Trainer) fillBatch(train *Dataset, xBacks [][]float64, yBack []float64, V int) {
	for _, xb := range xBacks {
		for i := range xb {
			xb[i] = 0
		}
	}
	for i := range yBack {
		yBack[i] = 0
	}
	for b := 0; b < t.cfg.BatchSize; b++ {
		idx := t.rng.Intn(train.Len())
		for w, code := range train.Contexts[idx] {
			xBacks[w][b*V+code] = 1
		}
		yBack[b*V+train.Targets[idx]] = 1
	}
}

// buildLoss composes embedding lookup, the tanh hidden layer, the output
// layer and the mean softmax cross-entropy over the batch.
func (t *Trainer) buildLoss(xs []*gorgonia.Node, y *gorgonia.Node) (*gorgonia.Node, error) {
	p := t.params

	embs := make(gorgonia.Nodes, len(xs))
	for i, x := range xs {
		e, err := gorgonia.Mul(x, p.Embed)
		if err != nil {
			return nil, fmt.Errorf("embedding lookup for slot %d: %w", i, err)
		}
		embs[i] = e
	}
	cat := embs[0]
	if len(embs) > 1 {
		var err error
		cat, err = gorgonia.Concat(1, embs...)
		if err != nil {
			return nil, fmt.Errorf("flattening embeddings: %w", err)
		}
	}

	h1, err := gorgonia.Mul(cat, p.W1)
	if err != nil {
		return nil, fmt.Errorf("hidden layer: %w", err)
	}
	h1, err = gorgonia.BroadcastAdd(h1, p.B1, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("hidden bias: %w", err)
	}
	h, err := gorgonia.Tanh(h1)
	if err != nil {
		return nil, fmt.Errorf("tanh: %w", err)
	}

	o, err := gorgonia.Mul(h, p.W2)
	if err != nil {
		return nil, fmt.Errorf("output layer: %w", err)
	}
	logits, err := gorgonia.BroadcastAdd(o, p.B2, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("output bias: %w", err)
	}

	prob, err := gorgonia.SoftMax(logits)
	if err != nil {
		return nil, fmt.Errorf("softmax: %w", err)
	}
	logp, err := gorgonia.Log(prob)
	if err != nil {
		return nil, fmt.Errorf("log probabilities: %w", err)
	}
	picked, err := gorgonia.HadamardProd(logp, y)
	if err != nil {
		return nil, fmt.Errorf("selecting target log probabilities: %w", err)
	}
	perExample, err := gorgonia.Sum(picked, 1)
	if err != nil {
		return nil, fmt.Errorf("per-example loss: %w", err)
	}
	mean, err := gorgonia.Mean(perExample)
	if err != nil {
		return nil, fmt.Errorf("batch mean: %w", err)
	}
	loss, err := gorgonia.Neg(mean)
	if err != nil {
		return nil, fmt.Errorf("negating log likelihood: %w", err)
	}
	return loss, nil
}
