package ingest

import "github.com/kefis/kefis/internal/domain"

// entityCanonical is one row of the static entity gazetteer: a
// lowercase lookup key mapped to the entity's canonical display name
// and kind. Ported from the Kenya entity mappings in the Python
// original's DataNormalizer._load_entity_mappings.
type entityCanonical struct {
	CanonicalName string
	Kind          domain.EntityKind
}

// countyGazetteer holds all 47 Kenyan counties, keyed by their common
// lowercase name.
var countyGazetteer = map[string]entityCanonical{
	"mombasa":         {"Mombasa County", domain.EntityCounty},
	"kwale":           {"Kwale County", domain.EntityCounty},
	"kilifi":          {"Kilifi County", domain.EntityCounty},
	"tana river":      {"Tana River County", domain.EntityCounty},
	"lamu":            {"Lamu County", domain.EntityCounty},
	"taita taveta":    {"Taita Taveta County", domain.EntityCounty},
	"garissa":         {"Garissa County", domain.EntityCounty},
	"wajir":           {"Wajir County", domain.EntityCounty},
	"mandera":         {"Mandera County", domain.EntityCounty},
	"marsabit":        {"Marsabit County", domain.EntityCounty},
	"isiolo":          {"Isiolo County", domain.EntityCounty},
	"meru":            {"Meru County", domain.EntityCounty},
	"tharaka nithi":   {"Tharaka Nithi County", domain.EntityCounty},
	"embu":            {"Embu County", domain.EntityCounty},
	"kitui":           {"Kitui County", domain.EntityCounty},
	"machakos":        {"Machakos County", domain.EntityCounty},
	"makueni":         {"Makueni County", domain.EntityCounty},
	"nyandarua":       {"Nyandarua County", domain.EntityCounty},
	"nyeri":           {"Nyeri County", domain.EntityCounty},
	"kirinyaga":       {"Kirinyaga County", domain.EntityCounty},
	"muranga":         {"Muranga County", domain.EntityCounty},
	"kiambu":          {"Kiambu County", domain.EntityCounty},
	"turkana":         {"Turkana County", domain.EntityCounty},
	"west pokot":      {"West Pokot County", domain.EntityCounty},
	"samburu":         {"Samburu County", domain.EntityCounty},
	"trans nzoia":     {"Trans Nzoia County", domain.EntityCounty},
	"uasin gishu":     {"Uasin Gishu County", domain.EntityCounty},
	"elgeyo marakwet": {"Elgeyo Marakwet County", domain.EntityCounty},
	"nandi":           {"Nandi County", domain.EntityCounty},
	"baringo":         {"Baringo County", domain.EntityCounty},
	"laikipia":        {"Laikipia County", domain.EntityCounty},
	"nakuru":          {"Nakuru County", domain.EntityCounty},
	"narok":           {"Narok County", domain.EntityCounty},
	"kajiado":         {"Kajiado County", domain.EntityCounty},
	"kericho":         {"Kericho County", domain.EntityCounty},
	"bomet":           {"Bomet County", domain.EntityCounty},
	"kakamega":        {"Kakamega County", domain.EntityCounty},
	"vihiga":          {"Vihiga County", domain.EntityCounty},
	"bungoma":         {"Bungoma County", domain.EntityCounty},
	"busia":           {"Busia County", domain.EntityCounty},
	"siaya":           {"Siaya County", domain.EntityCounty},
	"kisumu":          {"Kisumu County", domain.EntityCounty},
	"homa bay":        {"Homa Bay County", domain.EntityCounty},
	"migori":          {"Migori County", domain.EntityCounty},
	"kisii":           {"Kisii County", domain.EntityCounty},
	"nyamira":         {"Nyamira County", domain.EntityCounty},
	"nairobi":         {"Nairobi County", domain.EntityCounty},
}

var ministryGazetteer = map[string]entityCanonical{
	"health":      {"Ministry of Health", domain.EntityMinistry},
	"education":   {"Ministry of Education", domain.EntityMinistry},
	"treasury":    {"National Treasury", domain.EntityMinistry},
	"defense":     {"Ministry of Defense", domain.EntityMinistry},
	"interior":    {"Ministry of Interior and National Administration", domain.EntityMinistry},
	"transport":   {"Ministry of Transport and Infrastructure", domain.EntityMinistry},
	"agriculture": {"Ministry of Agriculture and Livestock Development", domain.EntityMinistry},
}

var agencyGazetteer = map[string]entityCanonical{
	"kra":   {"Kenya Revenue Authority", domain.EntityAgency},
	"kenha": {"Kenya National Highways Authority", domain.EntityAgency},
	"nema":  {"National Environment Management Authority", domain.EntityAgency},
}

// allGazetteers concatenates the three tables for uniform lookup.
func allGazetteers() map[string]entityCanonical {
	merged := make(map[string]entityCanonical, len(countyGazetteer)+len(ministryGazetteer)+len(agencyGazetteer))
	for k, v := range countyGazetteer {
		merged[k] = v
	}
	for k, v := range ministryGazetteer {
		merged[k] = v
	}
	for k, v := range agencyGazetteer {
		merged[k] = v
	}
	return merged
}
