package catalog

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deso-protocol/sha1graph/diffset"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type yamlContinuation struct {
	Cost float64 `yaml:"cost"`
	Diff string  `yaml:"diff"`
}

type yamlGroup struct {
	Mask          uint16             `yaml:"mask"`
	Continuations []yamlContinuation `yaml:"continuations"`
}

type yamlCatalog struct {
	Groups []yamlGroup `yaml:"groups"`
}

// LoadFile reads a catalog. Files ending in .h are parsed as the C initializer
// table the characteristic search tools emit; everything else is read as YAML:
//
//	groups:
//	  - mask: 0x0100
//	    continuations:
//	      - cost: 61.5
//	        diff: 00000040/00000002/00000000/00000000/00000000
func LoadFile(path string) (*Catalog, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "LoadFile:")
	}
	defer ff.Close()

	var groups []Group
	if strings.EqualFold(filepath.Ext(path), ".h") {
		groups, err = ParseHeader(ff)
	} else {
		groups, err = ParseYAML(ff)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "LoadFile: %s", path)
	}
	cat, err := New(groups)
	if err != nil {
		return nil, errors.Wrapf(err, "LoadFile: %s", path)
	}
	glog.V(1).Infof("catalog.LoadFile: Loaded %d groups with %d continuations from %s",
		len(cat.Groups), cat.NumContinuations(), path)
	return cat, nil
}

// truncateAtTerminator drops the first zero-cost entry and everything after it.
func truncateAtTerminator(conts []Continuation) []Continuation {
	for ii, cont := range conts {
		if cont.Raw == 0 {
			return conts[:ii]
		}
	}
	return conts
}

func ParseYAML(rr io.Reader) ([]Group, error) {
	var doc yamlCatalog
	if err := yaml.NewDecoder(rr).Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "ParseYAML:")
	}
	groups := make([]Group, 0, len(doc.Groups))
	for ii, yg := range doc.Groups {
		group := Group{Mask: Mask(yg.Mask)}
		for jj, yc := range yg.Continuations {
			diff, err := diffset.ParseDiffVector(yc.Diff)
			if err != nil {
				return nil, errors.Wrapf(err, "ParseYAML: group %d continuation %d", ii, jj)
			}
			group.Continuations = append(group.Continuations, Continuation{Raw: yc.Cost, Diff: diff})
		}
		group.Continuations = truncateAtTerminator(group.Continuations)
		groups = append(groups, group)
	}
	return groups, nil
}

type headerToken struct {
	brace byte
	text  string
}

func tokenizeHeader(src string) ([]headerToken, error) {
	var tokens []headerToken
	for ii := 0; ii < len(src); {
		cc := src[ii]
		switch {
		case cc == '{' || cc == '}':
			tokens = append(tokens, headerToken{brace: cc})
			ii++
		case cc == ',' || cc == ' ' || cc == '\t' || cc == '\n' || cc == '\r':
			ii++
		case strings.HasPrefix(src[ii:], "//"):
			end := strings.IndexByte(src[ii:], '\n')
			if end < 0 {
				return tokens, nil
			}
			ii += end
		case strings.HasPrefix(src[ii:], "/*"):
			end := strings.Index(src[ii+2:], "*/")
			if end < 0 {
				return nil, errors.New("tokenizeHeader: unterminated comment")
			}
			ii += end + 4
		default:
			start := ii
			for ii < len(src) && strings.IndexByte("{}, \t\r\n", src[ii]) < 0 &&
				!strings.HasPrefix(src[ii:], "//") && !strings.HasPrefix(src[ii:], "/*") {
				ii++
			}
			tokens = append(tokens, headerToken{text: src[start:ii]})
		}
	}
	return tokens, nil
}

func parseHeaderUint(text string) (uint64, error) {
	return strconv.ParseUint(strings.TrimRight(text, "uUlL"), 0, 32)
}

// ParseHeader reads a table of C initializers of the form
//
//	{ mask, { {cost, {d0, d1, d2, d3, d4}}, {cost, {...}}, ... } },
//
// Missing trailing diff words are zero, as in C.
func ParseHeader(rr io.Reader) ([]Group, error) {
	src, err := io.ReadAll(rr)
	if err != nil {
		return nil, errors.Wrapf(err, "ParseHeader:")
	}
	tokens, err := tokenizeHeader(string(src))
	if err != nil {
		return nil, errors.Wrapf(err, "ParseHeader:")
	}

	var groups []Group
	var group Group
	var cont Continuation
	depth, field, word := 0, 0, 0
	for _, tok := range tokens {
		switch tok.brace {
		case '{':
			depth++
			switch depth {
			case 1:
				group = Group{}
				field = 0
			case 3:
				cont = Continuation{}
				field = 0
			case 4:
				word = 0
			case 5:
				return nil, errors.New("ParseHeader: initializers nested too deeply")
			}
			continue
		case '}':
			switch depth {
			case 0:
				return nil, errors.New("ParseHeader: unbalanced '}'")
			case 1:
				group.Continuations = truncateAtTerminator(group.Continuations)
				groups = append(groups, group)
			case 3:
				group.Continuations = append(group.Continuations, cont)
			}
			depth--
			continue
		}

		switch depth {
		case 1:
			if field != 0 {
				return nil, errors.Errorf("ParseHeader: unexpected value %q in group %d", tok.text, len(groups))
			}
			mask, err := parseHeaderUint(tok.text)
			if err != nil {
				return nil, errors.Wrapf(err, "ParseHeader: group %d mask", len(groups))
			}
			group.Mask = Mask(mask)
			field++
		case 3:
			if field != 0 {
				return nil, errors.Errorf("ParseHeader: unexpected value %q in group %d", tok.text, len(groups))
			}
			raw, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "ParseHeader: group %d cost", len(groups))
			}
			cont.Raw = raw
			field++
		case 4:
			if word >= diffset.DiffWords {
				return nil, errors.Errorf("ParseHeader: group %d has a diff with more than %d words",
					len(groups), diffset.DiffWords)
			}
			val, err := parseHeaderUint(tok.text)
			if err != nil {
				return nil, errors.Wrapf(err, "ParseHeader: group %d diff word %d", len(groups), word)
			}
			cont.Diff[word] = uint32(val)
			word++
		default:
			return nil, errors.Errorf("ParseHeader: unexpected value %q at nesting depth %d", tok.text, depth)
		}
	}
	if depth != 0 {
		return nil, errors.New("ParseHeader: unbalanced '{'")
	}
	return groups, nil
}
