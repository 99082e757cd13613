package parser

import (
	"path/filepath"
	"strings"
	"testing"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
)

func TestInclude(t *testing.T) {
	f := newFixture(t)
	f.write("partials/item.html", "<li>{{ x }}</li>")
	res, err := f.compile("page.html", signature+`<ul>{% for x in items %}{% include "partials/item.html" %}{% endfor %}</ul>`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := `    lemon_code += R"lemon(<ul>)lemon";
    for (std::vector<int>::const_iterator it1 = items.begin(); it1 != items.end(); ++it1)
    {
        const int &x = *it1;
        lemon_code += R"lemon(<li>)lemon";
        lemon_code += lemon::to_string(x);
        lemon_code += R"lemon(</li>)lemon";
    }
    lemon_code += R"lemon(</ul>)lemon";
`
	if res.Body != want {
		t.Errorf("got\n%s\nwant\n%s", res.Body, want)
	}
	if len(res.Dependencies) != 2 || filepath.Base(res.Dependencies[1]) != "item.html" {
		t.Errorf("Dependencies = %v", res.Dependencies)
	}
}

func TestNestedIncludeRelativePaths(t *testing.T) {
	f := newFixture(t)
	f.write("partials/outer.html", `[{% include "inner.html" %}]`)
	f.write("partials/inner.html", "{{ name }}")
	res, err := f.compile("page.html", signature+`{% include "partials/outer.html" %}`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(res.Body, "lemon_code += name;") || len(res.Dependencies) != 3 {
		t.Errorf("body = %s\ndeps = %v", res.Body, res.Dependencies)
	}
}

func TestIncludeErrors(t *testing.T) {
	f := newFixture(t)
	f.write("open_if.html", "{% if count %}x")
	f.write("stray.html", "{% endfor %}")
	f.write("self.html", `{% include "self.html" %}`)

	tests := []struct {
		name     string
		tpl      string
		category cerr.Category
		contains string
	}{
		{"missing file", `{% include "nope.html" %}`, cerr.IO, "cannot open include target"},
		{"construct left open", `{% include "open_if.html" %}`, cerr.Structural, "is not closed"},
		{"closer crossing boundary", `{% for x in items %}{% include "stray.html" %}`, cerr.Structural, "does not match {% include %}"},
		{"recursive include", `{% include "self.html" %}`, cerr.Structural, "nested deeper than"},
		{"unquoted path", `{% include page %}`, cerr.Structural, "quoted path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.compile("page.html", signature+tt.tpl, Options{MaxDepth: 8})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !cerr.IsCategory(err, tt.category) || !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("got %v, want %s error containing %q", err, tt.category, tt.contains)
			}
		})
	}
}

func TestExtendsOverridesBlock(t *testing.T) {
	f := newFixture(t)
	f.write("base.html", "<h1>{% block body %}Y{% endblock %}</h1>\n")
	res, err := f.compile("child.html", "<!-- std::string child() -->\n"+
		`{% extends "base.html" %}{% block body %}X{% endblock %}`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "    lemon_code += R\"lemon(<h1>X</h1>\n)lemon\";\n"
	if res.Body != want {
		t.Errorf("got\n%q\nwant\n%q", res.Body, want)
	}
}

func TestExtendsKeepsParentBlockWithoutOverride(t *testing.T) {
	f := newFixture(t)
	f.write("base.html", "<h1>{% block body %}Y{% endblock %}</h1>")
	res, err := f.compile("child.html", "<!-- std::string child() -->\n"+
		`{% extends "base.html" %}{% block other %}X{% endblock %}`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Body != "    lemon_code += R\"lemon(<h1>Y</h1>)lemon\";\n" {
		t.Errorf("got %q", res.Body)
	}
}

func TestExtendsWithCodeInBlocks(t *testing.T) {
	f := newFixture(t)
	f.write("layout/base.html", `<title>{% block title %}Site{% endblock title %}</title>
<main>
{% block content %}
  default
  {% block inner %}inner{% endblock %}
{% endblock %}
</main>
`)
	res, err := f.compile("page.html", signature+`{% extends "layout/base.html" %}
ignored text
{% block title %}{{ user.name }}{% endblock %}
{% block content %}
{% for x in items %}{{ x }}{% endfor %}
{% endblock content %}
`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, want := range []string{
		"lemon_code += user.name;",
		"const int &x = *it1;",
	} {
		if !strings.Contains(res.Body, want) {
			t.Errorf("missing %q in\n%s", want, res.Body)
		}
	}
	for _, unwanted := range []string{"Site", "default", "inner", "ignored"} {
		if strings.Contains(res.Body, unwanted) {
			t.Errorf("overridden or discarded text %q rendered:\n%s", unwanted, res.Body)
		}
	}
	if len(res.Dependencies) != 2 {
		t.Errorf("Dependencies = %v", res.Dependencies)
	}
}

func TestMultiLevelInheritance(t *testing.T) {
	f := newFixture(t)
	f.write("base.html", "[{% block a %}base-a{% endblock %}|{% block b %}base-b{% endblock %}|{% block c %}base-c{% endblock %}]")
	f.write("middle.html", `{% extends "base.html" %}{% block a %}middle-a{% endblock %}{% block b %}middle-b{% endblock %}`)
	res, err := f.compile("child.html", "<!-- std::string child() -->\n"+
		`{% extends "middle.html" %}{% block a %}child-a{% endblock %}`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "    lemon_code += R\"lemon([child-a|middle-b|base-c])lemon\";\n"
	if res.Body != want {
		t.Errorf("got %q\nwant %q", res.Body, want)
	}
	if len(res.Dependencies) != 3 {
		t.Errorf("Dependencies = %v", res.Dependencies)
	}
}

func TestBlockWithoutParent(t *testing.T) {
	got := body(t, "<p>{% block body %}{{ name }}{% endblock %}</p>")
	want := "    lemon_code += R\"lemon(<p>)lemon\";\n    lemon_code += name;\n    lemon_code += R\"lemon(</p>)lemon\";\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestExtendsErrors(t *testing.T) {
	f := newFixture(t)
	f.write("base.html", "{% block a %}x{% endblock %}")
	f.write("open.html", "{% block a %}x")

	tests := []struct {
		name     string
		tpl      string
		category cerr.Category
		contains string
	}{
		{"after output", `<p>{% extends "base.html" %}`, cerr.Structural, "before any output"},
		{"inside construct", `{% if count %}{% extends "base.html" %}{% endif %}`, cerr.Structural, "cannot appear inside"},
		{"twice", `{% extends "base.html" %}{% extends "base.html" %}`, cerr.Structural, "only one parent"},
		{"missing parent", `{% extends "nope.html" %}`, cerr.IO, "cannot open extends target"},
		{"unclosed parent block", `{% extends "open.html" %}`, cerr.Structural, "is not closed"},
		{"unclosed overridden block", `{% extends "open.html" %}{% block a %}y{% endblock %}`, cerr.Structural, "block a is not closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.compile("page.html", signature+tt.tpl, Options{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !cerr.IsCategory(err, tt.category) || !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("got %v, want %s error containing %q", err, tt.category, tt.contains)
			}
		})
	}
}
