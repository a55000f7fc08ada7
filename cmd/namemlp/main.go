package main

import (
	"crypto/sha256"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"namemlp"
)

// Manifest records everything needed to reproduce a training run.
type Manifest struct {
	NamesPath  string    `json:"names_path"`
	CorpusHash string    `json:"corpus_hash"`
	BlockSize  int       `json:"block_size"`
	EmbedDim   int       `json:"embed_dim"`
	HiddenDim  int       `json:"hidden_dim"`
	BatchSize  int       `json:"batch_size"`
	MaxSteps   int       `json:"max_steps"`
	LearnRate  float64   `json:"learn_rate"`
	DecayRate  float64   `json:"decay_rate"`
	DecayStep  int       `json:"decay_step"`
	VocabSize  int       `json:"vocab_size"`
	Seed       int64     `json:"seed"`
	TrainLoss  float64   `json:"train_loss"`
	DevLoss    float64   `json:"dev_loss"`
	TestLoss   float64   `json:"test_loss"`
	TrainedAt  time.Time `json:"trained_at"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "train":
		runTrain(os.Args[2:])
	case "sample":
		runSample(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("namemlp - character-level name generator (context MLP)")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  namemlp train --names FILE --out DIR [options]")
	fmt.Println("  namemlp sample --model FILE --vocab FILE [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train    Train a model from a newline-delimited name list")
	fmt.Println("  sample   Generate names from a trained model")
}

func runTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)

	cfg := namemlp.DefaultConfig()
	var namesPath, outDir string
	var seed int64
	var sampleCount int
	var temperature float64

	fs.StringVar(&namesPath, "names", "", "Path to name list, one per line (required)")
	fs.StringVar(&outDir, "out", "", "Output directory for model artifacts (required)")
	fs.IntVar(&cfg.BlockSize, "block", cfg.BlockSize, "Context window size")
	fs.IntVar(&cfg.EmbedDim, "dim", cfg.EmbedDim, "Embedding dimension")
	fs.IntVar(&cfg.HiddenDim, "hidden", cfg.HiddenDim, "Hidden layer size")
	fs.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "Minibatch size")
	fs.IntVar(&cfg.MaxSteps, "steps", cfg.MaxSteps, "Training steps")
	fs.Float64Var(&cfg.LearnRate, "lr", cfg.LearnRate, "Learning rate")
	fs.Float64Var(&cfg.DecayRate, "lr-decay", cfg.DecayRate, "Learning rate after the decay step")
	fs.IntVar(&cfg.DecayStep, "decay-step", cfg.DecayStep, "Step at which the learning rate decays")
	fs.IntVar(&cfg.LogEvery, "log-every", cfg.LogEvery, "Progress print interval (0 disables)")
	fs.Int64Var(&seed, "seed", 1337, "Random seed")
	fs.IntVar(&sampleCount, "samples", 20, "Names to sample after training")
	fs.Float64Var(&temperature, "temp", 1.0, "Sampling temperature")

	fs.Parse(args)

	if namesPath == "" || outDir == "" {
		fmt.Println("Error: --names and --out are required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		fatalf("creating output directory: %v", err)
	}

	fmt.Printf("📚 Loading names from %s...\n", namesPath)
	words, err := namemlp.LoadWords(namesPath)
	if err != nil {
		fatalf("loading names: %v", err)
	}
	fmt.Printf("   %d names\n", len(words))

	raw, err := os.ReadFile(namesPath)
	if err != nil {
		fatalf("hashing corpus: %v", err)
	}
	corpusHash := fmt.Sprintf("%x", sha256.Sum256(raw))[:16]

	fmt.Println("\n📝 Building vocabulary...")
	vocab, err := namemlp.BuildVocab(words)
	if err != nil {
		fatalf("building vocabulary: %v", err)
	}
	fmt.Printf("   Vocabulary size: %d (terminator %q at code %d)\n",
		vocab.Size(), namemlp.Terminator, namemlp.TerminatorCode)

	splits := namemlp.SplitWords(words, rand.New(rand.NewSource(seed)))
	fmt.Printf("   Split: train=%d dev=%d test=%d\n",
		len(splits.Train), len(splits.Dev), len(splits.Test))

	trainDS, err := namemlp.BuildDataset(splits.Train, vocab, cfg.BlockSize)
	if err != nil {
		fatalf("building train split: %v", err)
	}
	devDS, err := namemlp.BuildDataset(splits.Dev, vocab, cfg.BlockSize)
	if err != nil {
		fatalf("building dev split: %v", err)
	}
	testDS, err := namemlp.BuildDataset(splits.Test, vocab, cfg.BlockSize)
	if err != nil {
		fatalf("building test split: %v", err)
	}
	fmt.Printf("   Examples: train=%d dev=%d test=%d\n",
		trainDS.Len(), devDS.Len(), testDS.Len())

	trainer := namemlp.NewTrainer(vocab, cfg, seed)
	fmt.Printf("\n🧠 Model: block=%d dim=%d hidden=%d, %d parameters\n",
		cfg.BlockSize, cfg.EmbedDim, cfg.HiddenDim, trainer.Params().NumScalars())

	fmt.Printf("\n🏋️  Training for %d steps...\n", cfg.MaxSteps)
	var metrics namemlp.Metrics
	if err := trainer.Run(trainDS, &metrics); err != nil {
		fatalf("training: %v", err)
	}

	net := trainer.Params().Snapshot()
	trainLoss := net.SplitLoss(trainDS)
	devLoss := net.SplitLoss(devDS)
	testLoss := net.SplitLoss(testDS)
	fmt.Printf("\n✅ Training complete\n")
	fmt.Printf("   train loss: %.4f\n", trainLoss)
	fmt.Printf("   dev loss:   %.4f\n", devLoss)
	fmt.Printf("   test loss:  %.4f\n", testLoss)

	modelPath := filepath.Join(outDir, "model.gob")
	if err := namemlp.SaveNet(modelPath, net); err != nil {
		fatalf("saving model: %v", err)
	}
	fmt.Printf("💾 Model saved to %s\n", modelPath)

	vocabPath := filepath.Join(outDir, "vocab.json")
	if err := namemlp.SaveVocab(vocabPath, vocab); err != nil {
		fatalf("saving vocabulary: %v", err)
	}

	metricsPath := filepath.Join(outDir, "metrics.json")
	if err := metrics.SaveJSON(metricsPath); err != nil {
		fatalf("saving metrics: %v", err)
	}

	manifest := Manifest{
		NamesPath:  namesPath,
		CorpusHash: corpusHash,
		BlockSize:  cfg.BlockSize,
		EmbedDim:   cfg.EmbedDim,
		HiddenDim:  cfg.HiddenDim,
		BatchSize:  cfg.BatchSize,
		MaxSteps:   cfg.MaxSteps,
		LearnRate:  cfg.LearnRate,
		DecayRate:  cfg.DecayRate,
		DecayStep:  cfg.DecayStep,
		VocabSize:  vocab.Size(),
		Seed:       seed,
		TrainLoss:  trainLoss,
		DevLoss:    devLoss,
		TestLoss:   testLoss,
		TrainedAt:  time.Now(),
	}
	if err := saveJSON(filepath.Join(outDir, "manifest.json"), manifest); err != nil {
		fatalf("saving manifest: %v", err)
	}

	if sampleCount > 0 {
		fmt.Printf("\n🎲 Sampled names:\n")
		rng := rand.New(rand.NewSource(seed + 1))
		for i := 0; i < sampleCount; i++ {
			fmt.Printf("   %s\n", net.SampleName(vocab, rng, temperature, 32))
		}
	}
}

func runSample(args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)

	var modelPath, vocabPath string
	var count int
	var temperature float64
	var seed int64

	fs.StringVar(&modelPath, "model", "", "Path to model.gob (required)")
	fs.StringVar(&vocabPath, "vocab", "", "Path to vocab.json (required)")
	fs.IntVar(&count, "n", 20, "Number of names to generate")
	fs.Float64Var(&temperature, "temp", 1.0, "Sampling temperature")
	fs.Int64Var(&seed, "seed", 0, "Random seed (0 picks a time-based seed)")

	fs.Parse(args)

	if modelPath == "" || vocabPath == "" {
		fmt.Println("Error: --model and --vocab are required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	net, err := namemlp.LoadNet(modelPath)
	if err != nil {
		fatalf("loading model: %v", err)
	}
	vocab, err := namemlp.LoadVocab(vocabPath)
	if err != nil {
		fatalf("loading vocabulary: %v", err)
	}
	if vocab.Size() != net.VocabSize {
		fatalf("vocabulary size %d does not match model %d", vocab.Size(), net.VocabSize)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var out strings.Builder
	for i := 0; i < count; i++ {
		out.WriteString(net.SampleName(vocab, rng, temperature, 32))
		out.WriteByte('\n')
	}
	fmt.Print(out.String())
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func saveJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
