// Package voice turns a continuous speech-recognition stream into abstract
// assessment commands.
package voice

import (
	"errors"
	"log"
	"strings"
	"sync"
)

// ErrUnsupported is returned when the platform has no speech recognition.
var ErrUnsupported = errors.New("speech recognition is not supported")

// Command is the normalized intent behind a recognized phrase.
type Command string

const (
	CommandNext    Command = "next"
	CommandStart   Command = "start"
	CommandCapture Command = "capture"
)

// Signal is one emitted command. Seq increases with every emission so
// identical consecutive commands stay distinguishable.
type Signal struct {
	Command Command `json:"command"`
	Keyword string  `json:"keyword"`
	Seq     uint64  `json:"seq"`
}

type keyword struct {
	phrase  string
	command Command
}

// keywords is scanned in order; the first phrase contained in an utterance
// wins.
var keywords = []keyword{
	{"다음", CommandNext},
	{"넥스트", CommandNext},
	{"next", CommandNext},
	{"시작", CommandStart},
	{"준비", CommandStart},
	{"start", CommandStart},
	{"촬영", CommandCapture},
	{"캡처", CommandCapture},
	{"찍어", CommandCapture},
	{"capture", CommandCapture},
}

// Match returns the command for the first keyword found in transcript.
func Match(transcript string) (Command, string, bool) {
	text := strings.ToLower(strings.TrimSpace(transcript))
	for _, k := range keywords {
		if strings.Contains(text, k.phrase) {
			return k.command, k.phrase, true
		}
	}
	return "", "", false
}

// Recognizer is the platform speech-recognition capability. Results,
// end-of-session and errors are delivered back to the Interpreter through
// HandleResult, HandleEnd and HandleError.
type Recognizer interface {
	Supported() bool
	Start(lang string) error
	Stop()
}

// Interpreter owns one recognizer session and forwards matched commands to
// the sink.
type Interpreter struct {
	mu          sync.Mutex
	rec         Recognizer
	lang        string
	sink        func(Signal)
	enabled     bool
	listening   bool
	seq         uint64
	lastKeyword string
}

func NewInterpreter(rec Recognizer, lang string, sink func(Signal)) *Interpreter {
	if lang == "" {
		lang = "ko-KR"
	}
	return &Interpreter{rec: rec, lang: lang, sink: sink}
}

// Supported is false on platforms without speech recognition. Callers treat
// that as the feature being absent.
func (i *Interpreter) Supported() bool {
	return i.rec != nil && i.rec.Supported()
}

func (i *Interpreter) Listening() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.listening
}

func (i *Interpreter) LastKeyword() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastKeyword
}

// Start begins continuous listening. A session already running is stopped
// first.
func (i *Interpreter) Start() {
	if !i.Supported() {
		return
	}
	i.mu.Lock()
	if i.listening {
		i.rec.Stop()
	}
	i.enabled = true
	i.mu.Unlock()

	if err := i.rec.Start(i.lang); err != nil {
		log.Printf("voice: failed to start recognition: %v", err)
		return
	}
	i.mu.Lock()
	i.listening = true
	i.mu.Unlock()
}

// Stop ends listening; the recognizer will not be restarted.
func (i *Interpreter) Stop() {
	i.mu.Lock()
	wasEnabled := i.enabled
	i.enabled = false
	i.listening = false
	i.mu.Unlock()
	if wasEnabled && i.rec != nil {
		i.rec.Stop()
	}
}

func (i *Interpreter) Toggle() {
	if i.Listening() {
		i.Stop()
		return
	}
	i.Start()
}

// HandleResult processes one recognition result. Interim results are
// ignored.
func (i *Interpreter) HandleResult(transcript string, final bool) {
	if !final {
		return
	}
	cmd, phrase, ok := Match(transcript)
	if !ok {
		return
	}

	i.mu.Lock()
	if !i.enabled {
		i.mu.Unlock()
		return
	}
	i.seq++
	sig := Signal{Command: cmd, Keyword: phrase, Seq: i.seq}
	i.lastKeyword = phrase
	sink := i.sink
	i.mu.Unlock()

	if sink != nil {
		sink(sig)
	}
}

// HandleEnd is called when the recognizer session ends. While still
// enabled the session is restarted.
func (i *Interpreter) HandleEnd() {
	i.mu.Lock()
	i.listening = false
	restart := i.enabled
	i.mu.Unlock()
	if !restart {
		return
	}
	if err := i.rec.Start(i.lang); err != nil {
		log.Printf("voice: restart failed: %v", err)
		return
	}
	i.mu.Lock()
	i.listening = i.enabled
	i.mu.Unlock()
}

// HandleError keeps the session alive. Expected conditions are silent.
func (i *Interpreter) HandleError(code string) {
	switch code {
	case "aborted", "no-speech":
		return
	}
	log.Printf("voice: recognition error: %s", code)
}
