package areagraph

import "github.com/zatekoja/sewa/internal/domain/entities"

func loc(slug, name, district string, lat, lng float64, tags []string, neighbors ...entities.Neighbor) entities.Locality {
	return entities.Locality{
		Slug:        slug,
		DisplayName: name,
		District:    district,
		Location:    entities.Location{Latitude: lat, Longitude: lng},
		Tags:        tags,
		Neighbors:   neighbors,
	}
}

func edge(slug string, km float64) entities.Neighbor {
	return entities.Neighbor{Slug: slug, DistanceKm: km}
}

// Catalog returns the service region's localities. Edges are declared once;
// reverse edges are synthesized by Build. Each call returns a fresh copy.
func Catalog() []entities.Locality {
	return []entities.Locality{
		loc("tinkune", "Tinkune", "Kathmandu", 27.6857, 85.3480, []string{"ring-road", "airport"},
			edge("koteshwor", 1.3), edge("new-baneshwor", 1.6), edge("gaushala", 2.4)),
		loc("koteshwor", "Koteshwor", "Kathmandu", 27.6780, 85.3495, []string{"ring-road", "transit"},
			edge("balkumari", 1.7), edge("lokanthali", 1.4), edge("jadibuti", 1.2)),
		loc("balkumari", "Balkumari", "Lalitpur", 27.6715, 85.3410, []string{"ring-road"},
			edge("gwarko", 1.2), edge("imadol", 1.5)),
		loc("new-baneshwor", "New Baneshwor", "Kathmandu", 27.6915, 85.3420, []string{"commercial", "offices"},
			edge("old-baneshwor", 0.9), edge("thapathali", 2.3)),
		loc("old-baneshwor", "Old Baneshwor", "Kathmandu", 27.6975, 85.3365, []string{"residential"},
			edge("dillibazar", 1.4), edge("gaushala", 1.5)),
		loc("gaushala", "Gaushala", "Kathmandu", 27.7060, 85.3440, []string{"temple", "transit"},
			edge("chabahil", 1.4), edge("dillibazar", 1.9)),
		loc("chabahil", "Chabahil", "Kathmandu", 27.7170, 85.3460, []string{"ring-road", "commercial"},
			edge("boudha", 1.8), edge("maharajgunj", 2.5)),
		loc("boudha", "Boudha", "Kathmandu", 27.7215, 85.3620, []string{"heritage", "tourist"},
			edge("jorpati", 1.9)),
		loc("jorpati", "Jorpati", "Kathmandu", 27.7260, 85.3800, []string{"residential"}),
		loc("maharajgunj", "Maharajgunj", "Kathmandu", 27.7370, 85.3300, []string{"embassies", "hospital"},
			edge("lazimpat", 1.9), edge("budhanilkantha", 5.6)),
		loc("budhanilkantha", "Budhanilkantha", "Kathmandu", 27.7780, 85.3620, []string{"residential", "outskirts"}),
		loc("lazimpat", "Lazimpat", "Kathmandu", 27.7220, 85.3200, []string{"embassies"},
			edge("thamel", 1.2), edge("durbarmarg", 1.0)),
		loc("durbarmarg", "Durbarmarg", "Kathmandu", 27.7120, 85.3180, []string{"commercial"},
			edge("thamel", 0.9), edge("dillibazar", 1.8), edge("new-road", 1.3)),
		loc("dillibazar", "Dillibazar", "Kathmandu", 27.7050, 85.3280, []string{"offices"}),
		loc("thamel", "Thamel", "Kathmandu", 27.7150, 85.3110, []string{"tourist", "nightlife"},
			edge("new-road", 1.5)),
		loc("new-road", "New Road", "Kathmandu", 27.7040, 85.3070, []string{"commercial", "heritage"},
			edge("kalimati", 1.6), edge("thapathali", 1.7)),
		loc("kalimati", "Kalimati", "Kathmandu", 27.6980, 85.2980, []string{"market"},
			edge("kalanki", 1.9)),
		loc("kalanki", "Kalanki", "Kathmandu", 27.6935, 85.2810, []string{"ring-road", "transit"}),
		loc("thapathali", "Thapathali", "Kathmandu", 27.6920, 85.3180, []string{"hospital"},
			edge("kupondole", 0.8)),
		loc("kupondole", "Kupondole", "Lalitpur", 27.6860, 85.3170, []string{"offices", "restaurants"},
			edge("jawalakhel", 1.7), edge("patan", 1.4)),
		loc("patan", "Patan Durbar Square", "Lalitpur", 27.6727, 85.3253, []string{"heritage", "tourist"},
			edge("jawalakhel", 1.1), edge("gwarko", 1.9)),
		loc("jawalakhel", "Jawalakhel", "Lalitpur", 27.6725, 85.3140, []string{"residential", "zoo"},
			edge("satdobato", 2.3)),
		loc("satdobato", "Satdobato", "Lalitpur", 27.6580, 85.3240, []string{"ring-road", "sports"},
			edge("gwarko", 1.1)),
		loc("gwarko", "Gwarko", "Lalitpur", 27.6670, 85.3320, []string{"ring-road"}),
		loc("imadol", "Imadol", "Lalitpur", 27.6630, 85.3470, []string{"residential"}),
		loc("jadibuti", "Jadibuti", "Kathmandu", 27.6745, 85.3560, []string{"industrial"},
			edge("lokanthali", 0.8)),
		loc("lokanthali", "Lokanthali", "Bhaktapur", 27.6750, 85.3600, []string{"residential"},
			edge("thimi", 3.0)),
		loc("thimi", "Madhyapur Thimi", "Bhaktapur", 27.6810, 85.3870, []string{"pottery", "heritage"},
			edge("suryabinayak", 4.2), edge("bhaktapur-durbar", 4.5)),
		loc("suryabinayak", "Suryabinayak", "Bhaktapur", 27.6650, 85.4280, []string{"outskirts"},
			edge("bhaktapur-durbar", 1.0)),
		loc("bhaktapur-durbar", "Bhaktapur Durbar Square", "Bhaktapur", 27.6720, 85.4290, []string{"heritage", "tourist"}),
	}
}
