package sparql

import (
	"fmt"
	"strings"
)

// Query builders for the Wikibase-flavored endpoints the sync jobs read.
// All queries request English labels through the wikibase label service.

// QueryByItemLabel returns a query matching items whose label (and
// optionally any alias) equals label exactly.
func QueryByItemLabel(label string, includeAliases bool) string {
	labelCriteria := "rdfs:label|skos:altLabel"
	if !includeAliases {
		labelCriteria = "rdfs:label"
	}
	return fmt.Sprintf(`
        SELECT ?item ?itemLabel ?itemDescription ?itemAltLabel WHERE {
        ?item %s "%s"@en.
        SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
        }
    `, labelCriteria, escapeLiteral(label))
}

// QueryItemSubclasses returns a query listing the subclass targets of an
// item, concatenated into a single ?subclasses variable. Items with no
// subclass statement still produce a row (OPTIONAL semantics).
func QueryItemSubclasses(itemID, subclassPropertyID string) string {
	return fmt.Sprintf(`
        SELECT ?item ?itemLabel (GROUP_CONCAT(DISTINCT ?subclassOf; SEPARATOR=",") as ?subclasses)
        {
        VALUES (?item) {(wd:%s)}
        OPTIONAL {
            ?item wdt:%s ?subclassOf
        }
        SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
        } GROUP BY ?item ?itemLabel
    `, itemID, subclassPropertyID)
}

// PropertyCatalogQuery lists every property in the knowledgebase with
// its label, description, and aliases. Used to build the vocabulary.
const PropertyCatalogQuery = `
SELECT ?property ?propertyLabel ?propertyDescription ?propertyAltLabel WHERE {
    ?property a wikibase:Property .
    SERVICE wikibase:label { bd:serviceParam wikibase:language "en" .}
 }
 `

// QueryInstancesWithRank returns a query for every instance of classID
// with its label and optional rank value. Used for chronostratigraphic
// units, where rank distinguishes eons from eras from periods.
func QueryInstancesWithRank(classID, instanceOfPropertyID, rankPropertyID string) string {
	return fmt.Sprintf(`
        SELECT ?item ?itemLabel ?rank WHERE {
        ?item wdt:%s wd:%s.
        OPTIONAL { ?item wdt:%s ?rank }
        SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
        }
    `, instanceOfPropertyID, classID, rankPropertyID)
}

// QueryContainmentPairs returns a query for directed (child, parent)
// pairs of classID instances linked by containmentPropertyID. Feeds the
// relationship linker.
func QueryContainmentPairs(classID, instanceOfPropertyID, containmentPropertyID string) string {
	return fmt.Sprintf(`
        SELECT ?item ?parent WHERE {
        ?item wdt:%s wd:%s.
        ?item wdt:%s ?parent.
        }
    `, instanceOfPropertyID, classID, containmentPropertyID)
}

// escapeLiteral escapes quotes and backslashes in a SPARQL string literal.
func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// LocalName extracts the trailing identifier from an entity URI
// (e.g. "http://.../entity/Q55" → "Q55"). Returns the input unchanged
// when it has no path separator.
func LocalName(uri string) string {
	if i := strings.LastIndexAny(uri, "/#"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
