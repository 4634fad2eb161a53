package catalog

// sampleMedia is the catalog a fresh data directory starts with.
var sampleMedia = []Media{
	{
		Title: "The Long Signal", Year: 2021, Type: "movie",
		Genres: []string{"Sci-Fi", "Drama"}, PosterRef: "posters/long-signal.jpg",
		Plot: "A radio astronomer intercepts a repeating message and spends a decade convincing anyone to listen. **Quiet**, patient and unexpectedly funny.",
	},
	{
		Title: "Harbor Lights", Year: 2019, Type: "series",
		Genres: []string{"Crime", "Thriller", "Mystery", "Drama"}, PosterRef: "posters/harbor-lights.jpg",
		Plot: "Three seasons of smuggling, dockside politics and one detective who refuses to transfer out of the port district.",
	},
	{
		Title: "Paper Mountains", Year: 2023, Type: "movie",
		Genres: []string{"Animation", "Family"}, PosterRef: "posters/paper-mountains.jpg",
		Plot: "An origami fox folds a path home across a city made entirely of newsprint.",
	},
	{
		Title: "Night Shift", Year: 2020, Type: "series",
		Genres: []string{"Comedy"}, PosterRef: "posters/night-shift.jpg",
		Plot: "The overnight crew of a 24-hour laundromat handles every crisis except the laundry.",
	},
	{
		Title: "Saltwater Kings", Year: 2018, Type: "movie",
		Genres: []string{"Adventure", "History"}, PosterRef: "posters/saltwater-kings.jpg",
		Plot: "Pearl divers stage a mutiny against the company that owns their boats, their debts and their town.",
	},
	{
		Title: "Static", Year: 2024, Type: "movie",
		Genres: []string{"Horror"}, PosterRef: "posters/static.jpg",
		Plot: "Something keeps changing the channel.",
	},
}

// Seed fills an empty catalog with sample titles. It returns the number added.
func (s *Store) Seed() (int, error) {
	if !s.Empty() {
		return 0, nil
	}
	for i, m := range sampleMedia {
		if _, err := s.AddMedia(m); err != nil {
			return i, err
		}
	}
	return len(sampleMedia), nil
}
