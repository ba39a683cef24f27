// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"fmt"
	"strings"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// builtin is the default venue list.
var builtin = []types.ProceedingsSource{
	{URL: "https://dl.acm.org/conference/recsys/proceedings", Acronym: "RecSys", Title: "ACM Conference On Recommender Systems", Variant: types.VariantACM},
	{URL: "https://dl.acm.org/conference/kdd/proceedings", Acronym: "KDD", Title: "Knowledge Discovery and Data Mining", Variant: types.VariantACM},
	{URL: "https://dl.acm.org/conference/cikm/proceedings", Acronym: "CIKM", Title: "Conference on Information and Knowledge Management", Variant: types.VariantACM},
	{URL: "https://dl.acm.org/conference/ir/proceedings", Acronym: "SIGIR", Title: "Research and Development in Information Retrieval", Variant: types.VariantACM},
	{URL: "https://dl.acm.org/conference/umap/proceedings", Acronym: "UMAP", Title: "User Modeling, Adaptation and Personalization", Variant: types.VariantACM},
	{URL: "https://dl.acm.org/conference/thewebconf/proceedings", Acronym: "WWW", Title: "The ACM Web Conference", Variant: types.VariantACM},
	{URL: "https://dl.acm.org/conference/wsdm/proceedings", Acronym: "WSDM", Title: "Web Search and Data Mining", Variant: types.VariantACM},

	{URL: "https://aclanthology.org/venues/eacl/", Acronym: "EACL", Title: "European Chapter of the Association for Computational Linguistics", Variant: types.VariantACL},
	{URL: "https://aclanthology.org/venues/naacl/", Acronym: "NAACL", Title: "North American Chapter of the Association for Computational Linguistics", Variant: types.VariantACL},
	{URL: "https://aclanthology.org/venues/acl/", Acronym: "ACL", Title: "Annual Meeting of the Association for Computational Linguistics", Variant: types.VariantACL},
	{URL: "https://aclanthology.org/venues/emnlp/", Acronym: "EMNLP", Title: "Conference on Empirical Methods in Natural Language Processing", Variant: types.VariantACL},

	{URL: "https://ojs.aaai.org/index.php/AAAI/issue/archive", Acronym: "AAAI", Title: "Association for the Advancement of Artificial Intelligence", Variant: types.VariantOJS},
	{URL: "https://www.ijcai.org/all_proceedings", Acronym: "IJCAI", Title: "International Joint Conferences on Artificial Intelligence", Variant: types.VariantIJCAI},
	{URL: "https://papers.nips.cc/", Acronym: "NeurIPS", Title: "Conference on Neural Information Processing Systems", Variant: types.VariantNeurIPS},
	{URL: "https://dblp.org/db/conf/iclr/index.html", Acronym: "ICLR", Title: "International Conference on Learning Representations", Variant: types.VariantOpenReview},
	{URL: "https://dblp.org/db/conf/icml/index.html", Acronym: "ICML", Title: "International Conference on Machine Learning", Variant: types.VariantDBLP},
}

// Registry returns a copy of the built-in venues.
func Registry() []types.ProceedingsSource {
	out := make([]types.ProceedingsSource, len(builtin))
	copy(out, builtin)
	return out
}

// Select returns the sources named by acronyms, in registry order. No
// acronyms selects every source. Unknown acronyms are an error.
func Select(sources []types.ProceedingsSource, acronyms []string) ([]types.ProceedingsSource, error) {
	if len(acronyms) == 0 {
		return sources, nil
	}
	var (
		out     []types.ProceedingsSource
		unknown []string
	)
	for _, a := range acronyms {
		found := false
		for _, s := range sources {
			if s.Matches(a) {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, a)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown source(s): %s", strings.Join(unknown, ", "))
	}
	for _, s := range sources {
		for _, a := range acronyms {
			if s.Matches(a) {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

// Validate checks that every source names a known variant.
func Validate(sources []types.ProceedingsSource) error {
	for _, s := range sources {
		if _, err := New(s.Variant, Config{}); err != nil {
			return fmt.Errorf("source %s: %w", s.Acronym, err)
		}
		if s.URL == "" {
			return fmt.Errorf("source %s: missing url", s.Acronym)
		}
	}
	return nil
}
