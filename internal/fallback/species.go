package fallback

// Species is one entry of the offline reference table.
type Species struct {
	ID             string
	CommonName     string
	ScientificName string
}

// ReferenceSpecies lists the common species the local model can resolve by id.
var ReferenceSpecies = []Species{
	{"quercus-alba", "White Oak", "Quercus alba"},
	{"quercus-rubra", "Red Oak", "Quercus rubra"},
	{"juglans-nigra", "Black Walnut", "Juglans nigra"},
	{"prunus-serotina", "Black Cherry", "Prunus serotina"},
	{"acer-saccharum", "Hard Maple", "Acer saccharum"},
	{"acer-rubrum", "Soft Maple", "Acer rubrum"},
	{"fraxinus-americana", "White Ash", "Fraxinus americana"},
	{"liriodendron-tulipifera", "Poplar", "Liriodendron tulipifera"},
	{"pinus-strobus", "Eastern White Pine", "Pinus strobus"},
	{"pinus-ponderosa", "Ponderosa Pine", "Pinus ponderosa"},
	{"pseudotsuga-menziesii", "Douglas Fir", "Pseudotsuga menziesii"},
	{"tsuga-canadensis", "Eastern Hemlock", "Tsuga canadensis"},
	{"thuja-plicata", "Western Red Cedar", "Thuja plicata"},
	{"juniperus-virginiana", "Eastern Red Cedar", "Juniperus virginiana"},
	{"tectona-grandis", "Teak", "Tectona grandis"},
	{"swietenia-macrophylla", "Mahogany", "Swietenia macrophylla"},
	{"dalbergia-nigra", "Brazilian Rosewood", "Dalbergia nigra"},
	{"pterocarpus-soyauxii", "Padauk", "Pterocarpus soyauxii"},
	{"millettia-laurentii", "Wenge", "Millettia laurentii"},
	{"diospyros-ebenum", "Ebony", "Diospyros ebenum"},
	{"guibourtia-ehie", "Bubinga", "Guibourtia ehie"},
	{"chloroxylon-swietenia", "Satinwood", "Chloroxylon swietenia"},
	{"entandrophragma-cylindricum", "Sapele", "Entandrophragma cylindricum"},
	{"khaya-ivorensis", "African Mahogany", "Khaya ivorensis"},
	{"fagus-grandifolia", "American Beech", "Fagus grandifolia"},
	{"betula-alleghaniensis", "Yellow Birch", "Betula alleghaniensis"},
	{"carya-ovata", "Shagbark Hickory", "Carya ovata"},
	{"platanus-occidentalis", "American Sycamore", "Platanus occidentalis"},
	{"ulmus-americana", "American Elm", "Ulmus americana"},
	{"tilia-americana", "Basswood", "Tilia americana"},
	{"taxus-brevifolia", "Pacific Yew", "Taxus brevifolia"},
	{"picea-sitchensis", "Sitka Spruce", "Picea sitchensis"},
	{"sequoia-sempervirens", "Redwood", "Sequoia sempervirens"},
	{"araucaria-angustifolia", "Parana Pine", "Araucaria angustifolia"},
	{"dalbergia-latifolia", "Indian Rosewood", "Dalbergia latifolia"},
	{"shorea-spp", "Meranti", "Shorea spp."},
	{"intsia-bijuga", "Merbau", "Intsia bijuga"},
	{"hevea-brasiliensis", "Rubberwood", "Hevea brasiliensis"},
	{"acacia-melanoxylon", "Blackwood", "Acacia melanoxylon"},
	{"eucalyptus-marginata", "Jarrah", "Eucalyptus marginata"},
	{"corymbia-maculata", "Spotted Gum", "Corymbia maculata"},
	{"nothofagus-cunninghamii", "Myrtle Beech", "Nothofagus cunninghamii"},
	{"castanea-dentata", "American Chestnut", "Castanea dentata"},
	{"robinia-pseudoacacia", "Black Locust", "Robinia pseudoacacia"},
	{"sassafras-albidum", "Sassafras", "Sassafras albidum"},
	{"liquidambar-styraciflua", "Sweetgum", "Liquidambar styraciflua"},
	{"nyssa-sylvatica", "Black Tupelo", "Nyssa sylvatica"},
	{"paulownia-tomentosa", "Paulownia", "Paulownia tomentosa"},
	{"bambusa-vulgaris", "Bamboo", "Bambusa vulgaris"},
	{"olea-europaea", "Olive", "Olea europaea"},
}

var speciesByID = func() map[string]Species {
	m := make(map[string]Species, len(ReferenceSpecies))
	for _, s := range ReferenceSpecies {
		m[s.ID] = s
	}
	return m
}()

// LookupSpecies finds a reference species by its kebab-case id.
func LookupSpecies(id string) (Species, bool) {
	s, ok := speciesByID[id]
	return s, ok
}

// resolve names a model label, falling back to the raw label for species
// outside the reference table.
func resolve(label string) Species {
	if s, ok := LookupSpecies(label); ok {
		return s
	}
	return Species{ID: label, CommonName: label, ScientificName: "Unknown"}
}
