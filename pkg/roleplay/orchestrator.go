package roleplay

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"alicebot/pkg/history"
	"alicebot/pkg/persona"
)

// Backend is what the orchestrator needs from the generative path.
type Backend interface {
	Respond(ctx context.Context, st persona.State, userName string, recent []history.Message, userMessage string) (string, error)
}

// Orchestrator runs the full response pipeline for one incoming message:
// validate, try the backend, fall back to templates, post-process,
// persist. Backend failures never reach the caller; the only surfaced
// error is ErrInvalidInput.
type Orchestrator struct {
	store           history.Store
	backend         Backend
	templates       *TemplateResponder
	post            *PostProcessor
	timeout         time.Duration
	maxLen          int
	contextMessages int

	modeMu     sync.RWMutex
	llmEnabled bool

	lockMu    sync.Mutex
	userLocks map[int64]*sync.Mutex
}

func NewOrchestrator(store history.Store, backend Backend, templates *TemplateResponder, post *PostProcessor, timeout time.Duration, maxLen, contextMessages int) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxLen <= 0 {
		maxLen = 4000
	}
	if contextMessages <= 0 {
		contextMessages = DefaultContextMessages
	}
	return &Orchestrator{
		store:           store,
		backend:         backend,
		templates:       templates,
		post:            post,
		timeout:         timeout,
		maxLen:          maxLen,
		contextMessages: contextMessages,
		llmEnabled:      backend != nil,
		userLocks:       make(map[int64]*sync.Mutex),
	}
}

// SetLLMEnabled toggles the generative path. Templates keep working
// either way.
func (o *Orchestrator) SetLLMEnabled(enabled bool) {
	o.modeMu.Lock()
	o.llmEnabled = enabled && o.backend != nil
	o.modeMu.Unlock()
}

func (o *Orchestrator) LLMEnabled() bool {
	o.modeMu.RLock()
	defer o.modeMu.RUnlock()
	return o.llmEnabled
}

// userLock serializes the pipeline per user; different users proceed
// concurrently.
func (o *Orchestrator) userLock(userID int64) *sync.Mutex {
	o.lockMu.Lock()
	defer o.lockMu.Unlock()
	mu, ok := o.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		o.userLocks[userID] = mu
	}
	return mu
}

// Respond handles one user message end to end and returns the reply
// text with its image prompt.
func (o *Orchestrator) Respond(ctx context.Context, userID int64, userName, text string) (Reply, error) {
	clean, err := sanitize(text, o.maxLen)
	if err != nil {
		return Reply{}, err
	}

	mu := o.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	// Context window is read before the current message is appended;
	// the backend adds the message as the final user turn itself.
	recent, err := o.store.Recent(userID, o.contextMessages)
	if err != nil {
		log.Printf("History read failed for user %d: %v", userID, err)
		recent = nil
	}

	if _, err := o.store.Append(userID, history.RoleUser, clean, nil); err != nil {
		// Degrade to a single-turn exchange rather than dropping the message
		log.Printf("History append failed for user %d: %v", userID, err)
	}

	st := o.store.Persona(userID)
	st.UpdateRelationship(o.store.TotalMessages(userID))

	reply, usedBackend := o.generate(ctx, userID, userName, clean, recent, &st)

	if err := o.store.SetPersona(userID, st); err != nil {
		log.Printf("Persona save failed for user %d: %v", userID, err)
	}

	meta := map[string]string{
		"image_prompt": reply.ImagePrompt,
		"mood":         st.Mood,
		"scene":        st.Scene,
	}
	if _, err := o.store.Append(userID, history.RoleAssistant, reply.Text, meta); err != nil {
		log.Printf("History append failed for user %d: %v", userID, err)
	}

	if !usedBackend && o.LLMEnabled() {
		log.Printf("Answered user %d from templates (backend failed)", userID)
	}

	return reply, nil
}

// generate tries the backend first and falls back to templates on any
// failure. The bool reports whether the backend produced the reply.
func (o *Orchestrator) generate(ctx context.Context, userID int64, userName, text string, recent []history.Message, st *persona.State) (Reply, bool) {
	if o.LLMEnabled() {
		backendCtx, cancel := context.WithTimeout(ctx, o.timeout)
		raw, err := o.backend.Respond(backendCtx, *st, userName, recent, text)
		cancel()
		if err == nil {
			return o.post.Process(raw, *st), true
		}
		log.Printf("Backend failed for user %d: %v", userID, err)
	}

	tpl := o.templates.Respond(text, userName, st)
	// Authored templates always carry a hook and a prompt; run them
	// through the same invariant enforcement anyway.
	reply := Reply{Text: o.post.EnsureHook(tpl.Text), ImagePrompt: tpl.ImagePrompt}
	if reply.ImagePrompt == "" {
		reply.ImagePrompt = SynthesizeDirective(reply.Text, *st)
	}
	return reply, false
}

// sanitize drops control characters (newlines and tabs survive) and
// enforces the length limit.
func sanitize(text string, maxLen int) (string, error) {
	clean := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 32 || r == 0x7f {
			return -1
		}
		return r
	}, text)
	clean = strings.TrimSpace(clean)

	if clean == "" {
		return "", ErrInvalidInput
	}
	if utf8.RuneCountInString(clean) > maxLen {
		return "", ErrInvalidInput
	}
	return clean, nil
}
