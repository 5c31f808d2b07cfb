package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/archlint/archlint/internal/adapters/outbound/parser"
	"github.com/archlint/archlint/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseRel parses Python source under the given relative identity.
func parseRel(t *testing.T, rel, src string) *domain.SourceUnit {
	t.Helper()
	abs := filepath.Join(t.TempDir(), "unit.py")
	require.NoError(t, os.WriteFile(abs, []byte(src), 0644))

	u, err := parser.New().ParseFile(abs, rel)
	require.NoError(t, err)
	return u
}

func parse(t *testing.T, src string) *domain.SourceUnit {
	t.Helper()
	return parseRel(t, "mod.py", src)
}

func parseErr(t *testing.T, src string) *domain.ParseError {
	t.Helper()
	abs := filepath.Join(t.TempDir(), "unit.py")
	require.NoError(t, os.WriteFile(abs, []byte(src), 0644))

	_, err := parser.New().ParseFile(abs, "mod.py")
	require.Error(t, err)
	var pe *domain.ParseError
	require.True(t, errors.As(err, &pe), "parser errors must be *domain.ParseError")
	return pe
}

// --- Import Tests ---

func TestParse_PlainImport(t *testing.T) {
	u := parse(t, "import os\n")
	require.Len(t, u.Imports, 1)
	assert.Equal(t, "os", u.Imports[0].Module)
	assert.Equal(t, domain.ImportAbsolute, u.Imports[0].Kind)
	assert.Equal(t, 1, u.Imports[0].Line)
	assert.False(t, u.Imports[0].Deferred)
}

func TestParse_PlainImportWithAlias(t *testing.T) {
	u := parse(t, "import numpy as np\n")
	require.Len(t, u.Imports, 1)
	assert.Equal(t, "numpy", u.Imports[0].Module)
	assert.Equal(t, "np", u.Imports[0].Alias)
}

func TestParse_MultiImport(t *testing.T) {
	u := parse(t, "import os, sys, json\n")
	require.Len(t, u.Imports, 3)
	assert.Equal(t, "os", u.Imports[0].Module)
	assert.Equal(t, "sys", u.Imports[1].Module)
	assert.Equal(t, "json", u.Imports[2].Module)
}

func TestParse_FromImport(t *testing.T) {
	u := parse(t, "from app.db import Store\n")
	require.Len(t, u.Imports, 1)
	assert.Equal(t, "app.db", u.Imports[0].Module)
	assert.Equal(t, []string{"Store"}, u.Imports[0].Symbols)
	assert.Equal(t, domain.ImportAbsolute, u.Imports[0].Kind)
}

func TestParse_FromImportMultipleSymbols(t *testing.T) {
	u := parse(t, "from app.db import Store, connect as conn\n")
	require.Len(t, u.Imports, 2)
	assert.Equal(t, []string{"Store"}, u.Imports[0].Symbols)
	assert.Empty(t, u.Imports[0].Alias)
	assert.Equal(t, []string{"connect"}, u.Imports[1].Symbols)
	assert.Equal(t, "conn", u.Imports[1].Alias)
}

func TestParse_RelativeImport(t *testing.T) {
	u := parse(t, "from ..models import User\n")
	require.Len(t, u.Imports, 1)
	assert.Equal(t, "models", u.Imports[0].Module)
	assert.Equal(t, 2, u.Imports[0].Dots)
	assert.Equal(t, domain.ImportRelative, u.Imports[0].Kind)
}

func TestParse_RelativeDotOnlyImport(t *testing.T) {
	u := parse(t, "from . import sibling\n")
	require.Len(t, u.Imports, 1)
	assert.Empty(t, u.Imports[0].Module)
	assert.Equal(t, 1, u.Imports[0].Dots)
	assert.Equal(t, []string{"sibling"}, u.Imports[0].Symbols)
}

func TestParse_WildcardImport(t *testing.T) {
	u := parse(t, "from app.helpers import *\n")
	require.Len(t, u.Imports, 1)
	assert.Equal(t, domain.ImportWildcard, u.Imports[0].Kind)
	assert.Empty(t, u.Imports[0].Symbols)
}

func TestParse_ParenthesizedImportJoinsLines(t *testing.T) {
	src := `from app.models import (
    User,
    Order,
)
`
	u := parse(t, src)
	require.Len(t, u.Imports, 2)
	assert.Equal(t, []string{"User"}, u.Imports[0].Symbols)
	assert.Equal(t, []string{"Order"}, u.Imports[1].Symbols)
	assert.Equal(t, 1, u.Imports[0].Line, "joined statement keeps the first physical line")
}

func TestParse_DeferredImport(t *testing.T) {
	src := `def build():
    from app.db import Store
    return Store()
`
	u := parse(t, src)
	require.Len(t, u.Imports, 1)
	assert.True(t, u.Imports[0].Deferred)
	assert.Equal(t, 2, u.Imports[0].Line)
}

func TestParse_ModuleNames(t *testing.T) {
	tests := []struct {
		rel    string
		module string
	}{
		{"app/routers/users.py", "app.routers.users"},
		{"app/__init__.py", "app"},
		{"__init__.py", ""},
		{"main.py", "main"},
	}
	for _, tt := range tests {
		u := parseRel(t, tt.rel, "x = 1\n")
		assert.Equal(t, tt.module, u.Module, "rel %s", tt.rel)
	}
}

// --- Class Tests ---

func TestParse_ClassShape(t *testing.T) {
	src := `class UserOps:
    def __init__(self, repo):
        self._repo = repo
        self.count = 0

    def run(self, job_id):
        return self._repo.get(job_id)
`
	u := parse(t, src)
	require.Len(t, u.Classes, 1)

	cls := u.Classes[0]
	assert.Equal(t, "UserOps", cls.Name)
	assert.Equal(t, 1, cls.Line)
	assert.Equal(t, 2, cls.AttributeCount)
	require.Len(t, cls.Methods, 2)
	assert.Equal(t, "__init__", cls.Methods[0].Name)
	assert.Equal(t, "run", cls.Methods[1].Name)
}

func TestParse_ClassBases(t *testing.T) {
	u := parse(t, "class Admin(User, AuditMixin, metaclass=Meta):\n    pass\n")
	require.Len(t, u.Classes, 1)
	assert.Equal(t, []string{"User", "AuditMixin"}, u.Classes[0].Bases,
		"keyword arguments are not bases")
}

func TestParse_ProtocolDetection(t *testing.T) {
	src := `class Repo(Protocol):
    def get(self, key): ...

class GenericRepo(typing.Protocol[T]):
    def get(self, key): ...

class Concrete(Base):
    pass
`
	u := parse(t, src)
	require.Len(t, u.Classes, 3)
	assert.True(t, u.Classes[0].IsProtocol)
	assert.True(t, u.Classes[1].IsProtocol)
	assert.False(t, u.Classes[2].IsProtocol)
}

func TestParse_SelfAttributesCountedOnce(t *testing.T) {
	src := `class Counter:
    def __init__(self):
        self.value = 0

    def bump(self):
        self.value = self.value + 1
`
	u := parse(t, src)
	require.Len(t, u.Classes, 1)
	assert.Equal(t, 1, u.Classes[0].AttributeCount)
}

func TestParse_AnnotatedSelfAssignment(t *testing.T) {
	src := `class Box:
    def __init__(self):
        self.size: int = 0
        self.label, self.owner = "", None
`
	u := parse(t, src)
	require.Len(t, u.Classes, 1)
	assert.Equal(t, 3, u.Classes[0].AttributeCount)
}

func TestParse_AugmentedAssignmentIsNotAnAttribute(t *testing.T) {
	src := `class Tally:
    def bump(self):
        self.total += 1
`
	u := parse(t, src)
	require.Len(t, u.Classes, 1)
	assert.Zero(t, u.Classes[0].AttributeCount)
}

func TestParse_MethodParamsDropReceiver(t *testing.T) {
	src := `class Svc:
    def call(self, a, b=2, *args, c: int = 3, **kwargs):
        pass
`
	u := parse(t, src)
	require.Len(t, u.Classes, 1)
	params := u.Classes[0].Methods[0].Params
	require.Len(t, params, 5)
	assert.Equal(t, "a", params[0].Name)
	assert.Equal(t, "b", params[1].Name)
	assert.Equal(t, "2", params[1].Default)
	assert.Equal(t, "args", params[2].Name)
	assert.Equal(t, "c", params[3].Name)
	assert.Equal(t, "int", params[3].Annotation)
	assert.Equal(t, "3", params[3].Default)
	assert.Equal(t, "kwargs", params[4].Name)
}

func TestParse_NestedClassNotRecorded(t *testing.T) {
	src := `class Outer:
    class Meta:
        ordering = "name"
`
	u := parse(t, src)
	require.Len(t, u.Classes, 1)
	assert.Equal(t, "Outer", u.Classes[0].Name)
}

// --- Function Tests ---

func TestParse_ModuleFunctions(t *testing.T) {
	src := `def first():
    pass

async def second(x, y):
    pass
`
	u := parse(t, src)
	require.Len(t, u.Functions, 2)
	assert.Equal(t, "first", u.Functions[0].Name)
	assert.Equal(t, "second", u.Functions[1].Name)
	assert.Len(t, u.Functions[1].Params, 2)
}

func TestParse_NestedDefsNotRecorded(t *testing.T) {
	src := `def outer():
    def inner():
        pass
    return inner
`
	u := parse(t, src)
	require.Len(t, u.Functions, 1)
	assert.Equal(t, "outer", u.Functions[0].Name)
}

func TestParse_DefaultWithCommasInsideCall(t *testing.T) {
	u := parse(t, "def f(sizes=(1, 2), mode=\"fast\"):\n    pass\n")
	require.Len(t, u.Functions, 1)
	params := u.Functions[0].Params
	require.Len(t, params, 2)
	assert.Equal(t, "sizes", params[0].Name)
	assert.Equal(t, "(1, 2)", params[0].Default)
	assert.Equal(t, "mode", params[1].Name)
}

// --- Nesting Tests ---

func TestParse_NestingDepth(t *testing.T) {
	src := `def process(items):
    for item in items:
        if item.ok:
            with item.open() as fh:
                fh.write(item)
`
	u := parse(t, src)
	require.Len(t, u.Functions, 1)
	assert.Equal(t, 3, u.Functions[0].MaxNesting)
}

func TestParse_SiblingBlocksDoNotStack(t *testing.T) {
	src := `def branchy(flag):
    if flag:
        one()
    elif other():
        two()
    else:
        three()
`
	u := parse(t, src)
	require.Len(t, u.Functions, 1)
	assert.Equal(t, 1, u.Functions[0].MaxNesting)
}

func TestParse_TryExceptDepth(t *testing.T) {
	src := `def guarded():
    try:
        risky()
    except ValueError:
        if retryable():
            again()
`
	u := parse(t, src)
	require.Len(t, u.Functions, 1)
	assert.Equal(t, 2, u.Functions[0].MaxNesting)
}

func TestParse_MethodNestingIndependent(t *testing.T) {
	src := `class Svc:
    def shallow(self):
        return 1

    def deep(self):
        for x in range(3):
            if x:
                while x:
                    x -= 1
`
	u := parse(t, src)
	require.Len(t, u.Classes, 1)
	methods := u.Classes[0].Methods
	require.Len(t, methods, 2)
	assert.Zero(t, methods[0].MaxNesting)
	assert.Equal(t, 3, methods[1].MaxNesting)
}

// --- Except Tests ---

func TestParse_ExceptClauses(t *testing.T) {
	src := `try:
    risky()
except ValueError:
    handle()
except (KeyError, IndexError) as exc:
    log(exc)
except Exception:
    pass
except:
    pass
`
	u := parse(t, src)
	require.Len(t, u.Excepts, 4)
	assert.Equal(t, "ValueError", u.Excepts[0].Exception)
	assert.Equal(t, "(KeyError, IndexError)", u.Excepts[1].Exception)
	assert.Equal(t, "Exception", u.Excepts[2].Exception)
	assert.Empty(t, u.Excepts[3].Exception)
}

func TestParse_ReraiseDetected(t *testing.T) {
	src := `try:
    risky()
except Exception:
    log()
    raise
except ValueError:
    swallow()
`
	u := parse(t, src)
	require.Len(t, u.Excepts, 2)
	assert.True(t, u.Excepts[0].Reraises)
	assert.False(t, u.Excepts[1].Reraises)
}

func TestParse_ExceptStarGroups(t *testing.T) {
	src := `try:
    risky()
except* ValueError:
    pass
`
	u := parse(t, src)
	require.Len(t, u.Excepts, 1)
	assert.Equal(t, "ValueError", u.Excepts[0].Exception)
}

// --- Access and Call Tests ---

func TestParse_AttributeChains(t *testing.T) {
	u := parse(t, "total = report.owner.account.balance\n")
	require.Len(t, u.Accesses, 1)
	assert.Equal(t, "report", u.Accesses[0].Receiver)
	assert.Equal(t, []string{"owner", "account", "balance"}, u.Accesses[0].Chain)
	assert.Equal(t, 1, u.Accesses[0].Line)
}

func TestParse_CallSites(t *testing.T) {
	src := `def run():
    data = load()
    if check(data):
        return render(data)
`
	u := parse(t, src)

	var names []string
	for _, c := range u.Calls {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "load")
	assert.Contains(t, names, "check")
	assert.Contains(t, names, "render")
	assert.NotContains(t, names, "if", "keywords are not calls")
	assert.NotContains(t, names, "return")
}

func TestParse_OpenInWith(t *testing.T) {
	src := `with open("data.txt") as fh:
    body = fh.read()
handle = open("other.txt")
`
	u := parse(t, src)

	var opens []domain.CallSite
	for _, c := range u.Calls {
		if c.Name == "open" {
			opens = append(opens, c)
		}
	}
	require.Len(t, opens, 2)
	assert.True(t, opens[0].InWith)
	assert.False(t, opens[1].InWith)
}

// --- Cleaning Tests ---

func TestParse_CommentsStripped(t *testing.T) {
	u := parse(t, "import os  # the only import\n# import sys\n")
	require.Len(t, u.Imports, 1)
	assert.Equal(t, "os", u.Imports[0].Module)
}

func TestParse_StringsBlanked(t *testing.T) {
	src := `url = "http://example.com#anchor"
template = "if ( this looks like code )"
import json
`
	u := parse(t, src)
	require.Len(t, u.Imports, 1)
	assert.Equal(t, "json", u.Imports[0].Module)
	assert.Empty(t, u.Calls, "call-looking text inside strings is ignored")
}

func TestParse_DocstringsSkipped(t *testing.T) {
	src := `"""Module docstring.

Spans lines and contains def fake(): pass.
"""

def real():
    pass
`
	u := parse(t, src)
	require.Len(t, u.Functions, 1)
	assert.Equal(t, "real", u.Functions[0].Name)
	assert.Equal(t, 6, u.Functions[0].Line)
}

func TestParse_BackslashContinuation(t *testing.T) {
	src := "total = 1 + \\\n    2\nimport os\n"
	u := parse(t, src)
	require.Len(t, u.Imports, 1)
	assert.Equal(t, 3, u.Imports[0].Line)
}

func TestParse_CountsLinesAndBytes(t *testing.T) {
	src := "a = 1\nb = 2\n"
	u := parse(t, src)
	assert.Equal(t, 2, u.LineCount)
	assert.Equal(t, len(src), u.ByteLen)

	noTrailing := parse(t, "a = 1\nb = 2")
	assert.Equal(t, 2, noTrailing.LineCount)
}

// --- Error Tests ---

func TestParse_UnterminatedTripleQuote(t *testing.T) {
	pe := parseErr(t, "TITLE = \"\"\"Monthly report\n")
	assert.Equal(t, "mod.py", pe.Path)
	assert.Equal(t, 1, pe.Line)
	assert.Equal(t, "unterminated triple-quoted string", pe.Reason)
}

func TestParse_UnclosedBracket(t *testing.T) {
	pe := parseErr(t, "x = (1, 2\n")
	assert.Equal(t, "unclosed bracket at end of file", pe.Reason)
}

func TestParse_UnmatchedClosingBracket(t *testing.T) {
	pe := parseErr(t, "x = 1)\n")
	assert.Equal(t, "unmatched closing bracket", pe.Reason)
	assert.Equal(t, 1, pe.Line)
}

func TestParse_UnexpectedIndent(t *testing.T) {
	pe := parseErr(t, "    x = 1\n")
	assert.Equal(t, "unexpected indent", pe.Reason)
}

func TestParse_UnterminatedString(t *testing.T) {
	pe := parseErr(t, "s = \"abc\n")
	assert.Equal(t, "unterminated string literal", pe.Reason)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := parser.New().ParseFile(filepath.Join(t.TempDir(), "ghost.py"), "ghost.py")
	require.Error(t, err)

	var pe *domain.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "ghost.py", pe.Path)
	assert.Contains(t, pe.Reason, "read failed")
}

func TestParse_EmptyFile(t *testing.T) {
	u := parse(t, "")
	assert.Empty(t, u.Imports)
	assert.Empty(t, u.Functions)
	assert.Zero(t, u.LineCount)
}
