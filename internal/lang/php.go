package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/phobologic/phpbundle/internal/model"
)

func init() {
	Languages["php"] = &Language{
		Name:       "php",
		Extensions: []string{".php"},
		lang:       php.GetLanguage(),
		DeclKind:   phpDeclKind,
		DeclName:   phpDeclName,
		ClassBody:  phpClassBody,
		CallTarget: phpCallTarget,
	}
}

var phpDeclKinds = map[string]model.DeclKind{
	"function_definition":   model.Function,
	"class_declaration":     model.Class,
	"interface_declaration": model.Interface,
	"trait_declaration":     model.Trait,
	"enum_declaration":      model.Enum,
	"method_declaration":    model.Method,
}

func phpDeclKind(node *sitter.Node) model.DeclKind {
	if k, ok := phpDeclKinds[node.Type()]; ok {
		return k
	}
	return model.Other
}

func phpDeclName(node *sitter.Node, source []byte) string {
	if _, ok := phpDeclKinds[node.Type()]; !ok {
		return ""
	}
	if name := node.ChildByFieldName("name"); name != nil {
		return NodeText(name, source)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "name" {
			return NodeText(child, source)
		}
	}
	return ""
}

func phpClassBody(node *sitter.Node) *sitter.Node {
	if body := node.ChildByFieldName("body"); body != nil {
		return body
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "declaration_list", "enum_declaration_list":
			return child
		}
	}
	return nil
}

// phpCallTarget resolves name nodes to a symbol. Any other expression in
// the target position is dynamic.
func phpCallTarget(node *sitter.Node, shape model.Shape, source []byte) model.Target {
	var target *sitter.Node
	switch shape {
	case model.FunctionCall:
		target = node.ChildByFieldName("function")
		if target == nil && node.NamedChildCount() > 0 {
			target = node.NamedChild(0)
		}
	case model.MethodCall, model.StaticCall:
		target = node.ChildByFieldName("name")
	case model.Instantiation:
		target = phpInstantiatedClass(node)
	}
	if target == nil {
		return model.DynamicExpr{Text: CollapseWhitespace(NodeText(node, source))}
	}

	switch target.Type() {
	case "name":
		return model.StaticName(NodeText(target, source))
	case "qualified_name":
		if shape == model.FunctionCall || shape == model.Instantiation {
			return model.StaticName(unqualified(NodeText(target, source)))
		}
	case "anonymous_class", "declaration_list":
		return model.DynamicExpr{Text: "class@anonymous"}
	}
	return model.DynamicExpr{Text: CollapseWhitespace(NodeText(target, source))}
}

func phpInstantiatedClass(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "arguments", "attribute_list", "comment":
			continue
		}
		return child
	}
	return nil
}

// unqualified strips a namespace prefix: `\App\Util\helper` becomes `helper`.
func unqualified(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}
	return name
}
