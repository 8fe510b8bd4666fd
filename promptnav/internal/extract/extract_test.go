package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom/domtest"
)

const sel = "div.whitespace-pre-wrap"

func prompt(text string) domtest.Element {
	return domtest.Element{Tag: "div", Classes: []string{"whitespace-pre-wrap"}, Text: text}
}

func TestExtract_DocumentOrderAndTrim(t *testing.T) {
	doc := domtest.New()
	body := doc.BodyNode()
	a := doc.Append(body, prompt("  first \n"))
	doc.Append(body, domtest.Element{Tag: "p", Text: "not a prompt"})
	b := doc.Append(body, prompt("second"))

	got := Extract(context.Background(), doc, body, sel, nil)
	if len(got) != 2 {
		t.Fatalf("Extract: got %d candidates, want 2", len(got))
	}
	if got[0].Node != a || got[0].Text != "first" {
		t.Errorf("candidate 0: got %+v", got[0])
	}
	if got[1].Node != b || got[1].Text != "second" {
		t.Errorf("candidate 1: got %+v", got[1])
	}
}

func TestExtract_NoMatchIsEmpty(t *testing.T) {
	doc := domtest.New()
	doc.Append(doc.BodyNode(), domtest.Element{Tag: "p", Text: "hello"})

	got := Extract(context.Background(), doc, doc.BodyNode(), sel, nil)
	if len(got) != 0 {
		t.Errorf("Extract: got %d candidates, want 0", len(got))
	}
}

func TestExtract_UnknownRootIsEmpty(t *testing.T) {
	doc := domtest.New()
	got := Extract(context.Background(), doc, 9999, sel, nil)
	if got != nil {
		t.Errorf("Extract: got %v, want nil", got)
	}
}

func TestExtract_FailingNodeSkippedAlone(t *testing.T) {
	doc := domtest.New()
	body := doc.BodyNode()
	doc.Append(body, prompt("A"))
	bad := doc.Append(body, prompt("broken"))
	doc.Append(body, prompt("B"))
	doc.FailText(bad)

	got := Extract(context.Background(), doc, body, sel, nil)
	if len(got) != 2 {
		t.Fatalf("Extract: got %d candidates, want 2", len(got))
	}
	if got[0].Text != "A" || got[1].Text != "B" {
		t.Errorf("texts: got %q, %q", got[0].Text, got[1].Text)
	}
}

func TestExtract_NestedUnderSubtree(t *testing.T) {
	doc := domtest.New()
	ids := doc.AppendTree(doc.BodyNode(),
		domtest.Element{Tag: "article"},
		domtest.Element{Tag: "section"},
		prompt("deep"),
	)

	got := Extract(context.Background(), doc, ids[0], sel, nil)
	if len(got) != 1 || got[0].Node != ids[2] {
		t.Fatalf("Extract: got %+v, want node %d", got, ids[2])
	}
}

func TestMarkdown(t *testing.T) {
	doc := domtest.New()
	n := doc.Append(doc.BodyNode(), prompt("explain **this**"))

	md, err := Markdown(context.Background(), doc, n)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "explain") {
		t.Errorf("Markdown: got %q", md)
	}
}

func TestMarkdown_Detached(t *testing.T) {
	doc := domtest.New()
	n := doc.Append(doc.BodyNode(), prompt("x"))
	doc.FailText(n)

	if _, err := Markdown(context.Background(), doc, n); err == nil {
		t.Error("Markdown: expected error for failing node")
	}
}
