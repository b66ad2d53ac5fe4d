package main

import (
	"fmt"

	"github.com/samcharles93/nexus/internal/inference"
	"github.com/samcharles93/nexus/internal/tensor"
	"github.com/samcharles93/nexus/internal/tokenizer"
	"github.com/samcharles93/nexus/internal/toy"
)

// toyProvider owns the shared weights and hands each session its own
// context.
type toyProvider struct {
	tok   tokenizer.Tokenizer
	model *toy.Model
}

func newToyProvider(f engineFlags) (*toyProvider, error) {
	if f.threads < 0 {
		return nil, &inference.ConfigError{Field: "threads", Reason: "must not be negative"}
	}
	if f.modelSeed < 0 {
		return nil, &inference.ConfigError{Field: "model_seed", Reason: "must not be negative"}
	}
	tensor.SetWorkers(int(f.threads))

	tok, err := tokenizer.Open(f.tokenizer)
	if err != nil {
		return nil, &inference.ConfigError{Field: "tokenizer", Reason: err.Error()}
	}
	m, err := toy.NewModel(toy.Config{
		Vocab:  tok.VocabSize(),
		Hidden: int(f.hidden),
		Seed:   uint64(f.modelSeed),
	})
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	return &toyProvider{tok: tok, model: m}, nil
}

func (p *toyProvider) Tokenizer() tokenizer.Tokenizer { return p.tok }

func (p *toyProvider) NewEngine(capacity int) (inference.Engine, error) {
	return inference.NewModelEngine(p.model.NewContext(capacity)), nil
}
