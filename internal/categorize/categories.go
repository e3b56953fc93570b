package categorize

// Category is a named section with the keywords that vote for it.
type Category struct {
	Header   string
	Keywords []string
}

// CatchAll heads the section holding blocks no category claimed.
const CatchAll = "Additional Information"

// Categories is the fixed, ordered set of sections. Order decides rendering and
// breaks scoring ties.
var Categories = []Category{
	{
		Header: "Overview & History",
		Keywords: []string{
			"history", "histoire", "built in", "construit", "century", "siècle",
			"château", "chateau", "manor", "manoir", "estate", "domaine",
			"heritage", "patrimoine", "architecture", "style", "duke", "duc",
			"founded", "fondé", "restored", "restauré", "tradition",
			"about us", "à propos", "our story", "notre histoire", "welcome",
			"bienvenue", "family", "famille", "generation", "génération",
			"listed", "classé", "monument", "historic", "historique",
		},
	},
	{
		Header: "Event Logistics",
		Keywords: []string{
			"event", "événement", "wedding", "mariage", "reception", "réception",
			"ceremony", "cérémonie", "seated", "assises", "cocktail", "standing",
			"debout", "capacity", "capacité", "catering", "traiteur", "tent",
			"chapiteau", "marquee", "vendor", "prestataire", "dj", "music",
			"musique", "dance floor", "piste de danse", "celebration", "banquet",
			"dinner", "dîner", "lunch", "déjeuner", "buffet", "seminar",
			"séminaire", "conference", "corporate", "entreprise", "party", "fête",
			"guests", "invités", "fireworks", "feu d'artifice",
		},
	},
	{
		Header: "Accommodation Breakdown",
		Keywords: []string{
			"room", "chambre", "suite", "gîte", "gite", "cottage", "bed", "lit",
			"bedroom", "double", "twin", "single", "king", "queen", "sleep",
			"coucher", "accommodation", "hébergement", "lodging", "guest house",
			"maison", "apartment", "appartement", "studio", "occupancy",
			"capacity", "bathroom", "salle de bain", "shower", "douche",
			"en-suite", "overnight", "nuit", "stay", "séjour", "person",
			"personne", "people", "personnes",
		},
	},
	{
		Header: "Amenities & Facilities",
		Keywords: []string{
			"pool", "piscine", "tennis", "spa", "sauna", "jacuzzi", "garden",
			"jardin", "park", "parc", "hectare", "acre", "wifi", "wi-fi",
			"internet", "parking", "nespresso", "coffee", "café", "kitchen",
			"cuisine", "terrace", "terrasse", "balcony", "balcon",
			"air conditioning", "climatisation", "heating", "chauffage",
			"fireplace", "cheminée", "gym", "fitness", "playground",
			"aire de jeux", "lake", "lac", "river", "rivière", "forest", "forêt",
			"vineyard", "vignoble", "wine", "vin", "bar", "lounge", "salon",
			"library", "bibliothèque", "chapel", "chapelle", "orangery", "orangerie",
		},
	},
	{
		Header: "Travel & Contact",
		Keywords: []string{
			"address", "adresse", "contact", "phone", "téléphone", "email",
			"direction", "how to get", "comment venir", "access", "accès",
			"airport", "aéroport", "train", "gare", "station", "highway",
			"autoroute", "km", "miles", "hours from", "heures de", "minutes",
			"paris", "lyon", "marseille", "bordeaux", "toulouse", "nice", "gps",
			"coordinates", "coordonnées", "map", "carte", "location",
			"localisation", "taxi", "shuttle", "navette", "transfer", "transfert",
			"nearest", "plus proche",
		},
	},
}
