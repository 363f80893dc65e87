package runtime

import (
	"golang.org/x/text/language"

	"github.com/formula-lang/formula/values"
)

// LocaleProvider 为数值与字符串格式化提供 locale。
type LocaleProvider interface {
	Locale() language.Tag
}

// Renderer 是视图渲染器的契约，T 是宿主节点类型。
type Renderer[T any] interface {
	CreateContainer() T
	RenderText(text string) T
	RenderNode(name string, props []values.Prop, childCount int) (T, error)
	AddNodeTo(parent, child T)
}

// ApplicationRuntime 把作用域链与渲染器绑定在一起。
type ApplicationRuntime[T any] struct {
	Runtime
	Renderer Renderer[T]
}

func NewApplication[T any](rt Runtime, renderer Renderer[T]) ApplicationRuntime[T] {
	return ApplicationRuntime[T]{Runtime: rt, Renderer: renderer}
}

// Render 把一个视图值渲染到新容器中。数组会被展开，null 不产生节点，
// 其余值按 locale 转为文本节点。
func Render[T any](app ApplicationRuntime[T], v values.Value) (T, error) {
	container := app.Renderer.CreateContainer()
	if err := renderInto(app, container, v); err != nil {
		var zero T
		return zero, err
	}
	return container, nil
}

func renderInto[T any](app ApplicationRuntime[T], parent T, v values.Value) error {
	switch v := v.(type) {
	case values.Null:
		return nil
	case values.Array:
		for _, item := range v.Items {
			if err := renderInto(app, parent, item); err != nil {
				return err
			}
		}
		return nil
	case values.View:
		node, err := app.Renderer.RenderNode(v.Tag, v.Props, len(v.Children))
		if err != nil {
			return err
		}
		for _, child := range v.Children {
			if err := renderInto(app, node, child); err != nil {
				return err
			}
		}
		app.Renderer.AddNodeTo(parent, node)
		return nil
	}
	app.Renderer.AddNodeTo(parent, app.Renderer.RenderText(values.Printable(v, app.Locale())))
	return nil
}
