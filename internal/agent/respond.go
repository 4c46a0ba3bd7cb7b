package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/conversation"
	"github.com/memvra/docbot/internal/files"
	"github.com/memvra/docbot/internal/prompt"
	"github.com/memvra/docbot/internal/router"
)

// Reply is the agent's answer. Attachment is the path of a file to send
// along with Text. Err is set when a collaborator failed; Text already
// describes the failure to the user.
type Reply struct {
	Text       string
	Attachment string
	Intent     router.Kind
	Err        error
}

// Respond answers one user message in the given session. File commands are
// handled directly; everything else goes through retrieval and generation.
// Requests on the same session run one at a time.
func (a *Agent) Respond(ctx context.Context, sess *conversation.Session, text string) Reply {
	start := time.Now()
	sess.Lock()
	defer sess.Unlock()

	in := a.router.Detect(text)
	resp, ok := a.handler.Handle(ctx, sess, in)
	if !ok && in.Kind == router.SaveReply {
		// Nothing to save yet: "send it as x.txt" may still be a reshare.
		in = a.router.DetectWithout(text, router.SaveReply)
		resp, ok = a.handler.Handle(ctx, sess, in)
	}
	if ok {
		a.recorder.Responded(in.Kind.String(), time.Since(start), resp.Err)
		a.logger.Debug("handled intent", zap.String("session", sess.ID), zap.Stringer("intent", in.Kind))
		return Reply{Text: resp.Text, Attachment: resp.Attachment, Intent: resp.Kind, Err: resp.Err}
	}

	reply := a.generate(ctx, sess, text)
	a.recorder.Responded(router.None.String(), time.Since(start), reply.Err)
	return reply
}

// ContextFor returns the memory chunks retrieved for question, without
// calling the language model.
func (a *Agent) ContextFor(ctx context.Context, question string) ([]string, error) {
	vec, err := a.embed(ctx, question)
	if err != nil {
		return nil, err
	}
	return a.retrieve(ctx, vec)
}

func (a *Agent) retrieve(ctx context.Context, vec []float32) ([]string, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	var chunks []string
	err := a.call(ctx, "memory.retrieve", func(ctx context.Context) error {
		var err error
		chunks, err = a.deps.Memory.Retrieve(ctx, vec, a.opts.Results)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (a *Agent) generate(ctx context.Context, sess *conversation.Session, text string) Reply {
	log := a.logger.With(zap.String("session", sess.ID))

	chunks, err := a.ContextFor(ctx, text)
	if err != nil {
		log.Warn("retrieval failed, answering without context", zap.Error(err))
		chunks = nil
	}

	names, err := a.deps.Files.List()
	if err != nil {
		log.Warn("list files", zap.Error(err))
	}
	var rulesText string
	if a.deps.Rules != nil {
		if rulesText, err = a.deps.Rules.Text(); err != nil {
			log.Warn("read rules", zap.Error(err))
		}
	}

	built := a.builder.Build(prompt.BuildOptions{
		Question:  text,
		Chunks:    chunks,
		History:   sess.Recent(a.opts.HistoryWindow),
		Files:     names,
		Rules:     rulesText,
		Now:       a.opts.Now(),
		MaxTokens: a.opts.MaxContextTokens,
	})
	req := built.Request()
	req.MaxTokens = a.opts.MaxTokens
	req.Temperature = a.opts.Temperature

	raw, genErr := a.complete(ctx, "llm", req)
	if genErr != nil {
		raw = failureText(genErr)
		log.Warn("generation failed", zap.Error(genErr))
	}

	sess.Append(
		conversation.Turn{Role: adapter.RoleUser, Content: text},
		conversation.Turn{Role: adapter.RoleAssistant, Content: raw},
	)
	cleaned := prompt.StripControlTags(raw)

	log.Debug("generated",
		zap.Int("chunks", built.ChunksUsed),
		zap.Int("context_tokens", built.TokensUsed),
		zap.Int("history", len(built.History)))

	if genErr != nil {
		return Reply{Text: cleaned, Err: genErr}
	}

	if name, ok := router.SaveTarget(text); ok {
		path, err := a.deps.Files.CreateText(name, cleaned)
		if errors.Is(err, files.ErrExists) {
			return Reply{Text: cleaned + "\n\n" + router.ExistsText(name)}
		}
		if err != nil {
			log.Warn("save reply", zap.String("name", name), zap.Error(err))
			return Reply{Text: cleaned, Err: err}
		}
		return Reply{Text: router.SavedReplyText, Attachment: path, Intent: router.SaveReply}
	}
	return Reply{Text: cleaned}
}

func (a *Agent) complete(ctx context.Context, name string, req adapter.CompletionRequest) (string, error) {
	var out string
	err := a.call(ctx, name, func(ctx context.Context) error {
		ch, err := a.deps.LLM.Complete(ctx, req)
		if err != nil {
			return err
		}
		out, err = adapter.Collect(ctx, ch)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func failureText(err error) string {
	var te *TimeoutError
	if errors.As(err, &te) {
		return fmt.Sprintf("The language model did not answer within %s. Please try again.", te.After)
	}
	return fmt.Sprintf("LLM Connection Error: %v", err)
}
