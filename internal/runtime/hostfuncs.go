package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"
	"github.com/rs/zerolog"

	"github.com/jward/embroider/internal/doctree"
)

// nodeObject exposes a declaration to scripts as the `node` global.
//
//	node.kind         "module", "subroutine", "function", "interface", "type" or "variable"
//	node.name         identifier ("" for unnamed interfaces)
//	node.declaration  opening source line
//	node.description  preceding comment run
//	node.type         variable type or function return type
//	node.value        parameter value
//	node.parameter    named constant
//	node.optional     optional dummy argument
func nodeObject(n doctree.Node) *object.Map {
	h := doctree.HeaderOf(n)
	var (
		typ, value          string
		parameter, optional bool
	)
	switch v := n.(type) {
	case *doctree.Variable:
		typ, value = v.Type, v.Value
		parameter, optional = v.Parameter, v.Optional
	case *doctree.Procedure:
		if v.Return != nil {
			typ = v.Return.Type
		}
	}
	return object.NewMap(map[string]object.Object{
		"kind":        object.NewString(n.Kind().String()),
		"name":        object.NewString(h.Name),
		"declaration": object.NewString(h.Declaration),
		"description": object.NewString(h.Description),
		"type":        object.NewString(typ),
		"value":       object.NewString(value),
		"parameter":   object.NewBool(parameter),
		"optional":    object.NewBool(optional),
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger zerolog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info().Str("source", "filter").Msg(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn().Str("source", "filter").Msg(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error().Str("source", "filter").Msg(msg)
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
