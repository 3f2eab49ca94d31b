package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/da"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/de"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/es"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fi"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fr"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/hu"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/it"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/nl"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/no"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/pt"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/ro"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/ru"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/sv"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/tr"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/surgebase/porter2"
)

// Stemmer names a stemming algorithm applied to the stem field.
type Stemmer string

const (
	StemmerNone    Stemmer = "none"
	StemmerEnglish Stemmer = "english"
	StemmerPorter  Stemmer = "porter"
	StemmerPorter2 Stemmer = "porter2"
)

// Porter2FilterName is the bleve token filter backed by porter2.Stem.
const Porter2FilterName = "stemmer_porter2"

func init() {
	registry.RegisterTokenFilter(Porter2FilterName, porter2FilterConstructor)
}

// stemFilters maps a stemmer onto the bleve token filter implementing it.
var stemFilters = map[Stemmer]string{
	StemmerNone:    "",
	StemmerEnglish: porter.Name,
	StemmerPorter:  porter.Name,
	StemmerPorter2: Porter2FilterName,
	"danish":       "stemmer_da_snowball",
	"dutch":        "stemmer_nl_snowball",
	"finnish":      "stemmer_fi_snowball",
	"french":       "stemmer_fr_snowball",
	"german":       "stemmer_de_snowball",
	"hungarian":    "stemmer_hu_snowball",
	"italian":      "stemmer_it_snowball",
	"norwegian":    "stemmer_no_snowball",
	"portuguese":   "stemmer_pt_light",
	"romanian":     "stemmer_ro_snowball",
	"russian":      "stemmer_ru_snowball",
	"spanish":      "stemmer_es_snowball",
	"swedish":      "stemmer_sv_snowball",
	"turkish":      "stemmer_tr_snowball",
}

// ParseStemmer validates a stemmer name. The empty string means english.
func ParseStemmer(name string) (Stemmer, error) {
	s := Stemmer(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		return StemmerEnglish, nil
	}
	if _, ok := stemFilters[s]; !ok {
		return "", fmt.Errorf("unknown stemmer %q", name)
	}
	return s, nil
}

// Stemmers lists the supported stemmer names.
func Stemmers() []string {
	names := make([]string, 0, len(stemFilters))
	for s := range stemFilters {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}

func (s Stemmer) filterName() string {
	return stemFilters[s]
}

func porter2FilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &porter2Filter{}, nil
}

// porter2Filter implements analysis.TokenFilter with the porter2 (snowball
// english) algorithm.
type porter2Filter struct{}

// Filter implements analysis.TokenFilter.
func (f *porter2Filter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		if token.KeyWord {
			continue
		}
		token.Term = []byte(porter2.Stem(string(token.Term)))
	}
	return input
}
