package moderation

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/pkg/errors"
)

// ModActionKind is the closed enum a scriptblocklist program may
// return (spec.md §4.6.2).
type ModActionKind int

const (
	ModIgnore ModActionKind = iota
	ModDelete
	ModWarn
	ModBan
	ModMute
	ModReply
)

// ModAction is the decision a scriptblocklist evaluation produced.
type ModAction struct {
	Kind       ModActionKind
	Reason     string
	ReplyText  string
	Diagnostic string // set when a malformed return value was coerced to Delete
}

// ScriptMessage is the view a scriptblocklist program evaluates
// against: deliberately narrow, mirroring the fields original_source's
// scripting module exposes to user programs.
type ScriptMessage struct {
	Text      string
	ChatID    int64
	UserID    int64
	Username  string
	IsAdmin   bool
	IsForward bool
}

var scriptEnv = mustScriptEnv()

func mustScriptEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("chat_id", cel.IntType),
		cel.Variable("user_id", cel.IntType),
		cel.Variable("username", cel.StringType),
		cel.Variable("is_admin", cel.BoolType),
		cel.Variable("is_forward", cel.BoolType),
	)
	if err != nil {
		panic(fmt.Sprintf("moderation: building script CEL env: %v", err))
	}
	return env
}

// ScriptEngine compiles and evaluates blocklist scripts (spec.md
// §4.6.2's "Script" predicate kind), grounded on
// original_source's src/modules/scripting.rs embedded-engine concept
// and implemented with google/cel-go, the pack's only scripting
// library.
type ScriptEngine struct{}

func NewScriptEngine() *ScriptEngine { return &ScriptEngine{} }

// Eval compiles source fresh on every call; scriptblocklist programs
// are short and infrequent enough that caching compiled cel.Program
// values per Blocklist.Handle isn't worth the complexity yet.
func (e *ScriptEngine) Eval(source string, msg ScriptMessage) (ModAction, error) {
	ast, issues := scriptEnv.Compile(source)
	if issues != nil && issues.Err() != nil {
		return ModAction{}, errors.Wrap(issues.Err(), "compiling scriptblocklist program")
	}
	prg, err := scriptEnv.Program(ast)
	if err != nil {
		return ModAction{}, errors.Wrap(err, "building scriptblocklist program")
	}
	out, _, err := prg.Eval(map[string]any{
		"text":       msg.Text,
		"chat_id":    msg.ChatID,
		"user_id":    msg.UserID,
		"username":   msg.Username,
		"is_admin":   msg.IsAdmin,
		"is_forward": msg.IsForward,
	})
	if err != nil {
		return ModAction{}, errors.Wrap(err, "evaluating scriptblocklist program")
	}
	return coerceModAction(out), nil
}

// coerceModAction maps a CEL result to the ModAction enum: a bool
// maps true->Delete, false->Ignore; a string is parsed as
// "kind[:argument]"; anything else becomes Delete with a diagnostic.
func coerceModAction(v ref.Val) ModAction {
	if b, ok := v.(types.Bool); ok {
		if bool(b) {
			return ModAction{Kind: ModDelete}
		}
		return ModAction{Kind: ModIgnore}
	}
	if s, ok := v.(types.String); ok {
		return parseModActionString(string(s))
	}
	return ModAction{Kind: ModDelete, Diagnostic: fmt.Sprintf("scriptblocklist program returned unsupported type %v; treated as delete", v.Type())}
}

func parseModActionString(s string) ModAction {
	kind, arg, _ := strings.Cut(s, ":")
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "ignore":
		return ModAction{Kind: ModIgnore}
	case "delete":
		return ModAction{Kind: ModDelete}
	case "warn":
		return ModAction{Kind: ModWarn, Reason: arg}
	case "ban":
		return ModAction{Kind: ModBan, Reason: arg}
	case "mute":
		return ModAction{Kind: ModMute, Reason: arg}
	case "reply":
		return ModAction{Kind: ModReply, ReplyText: arg}
	default:
		return ModAction{Kind: ModDelete, Diagnostic: fmt.Sprintf("scriptblocklist program returned unrecognized action %q; treated as delete", s)}
	}
}
