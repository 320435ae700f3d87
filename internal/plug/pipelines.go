package plug

// API is applied to every api request.
func API(origins ...string) Pipeline {
	return Pipeline{
		RequestID,
		Log,
		CORS(origins...),
		Clock,
	}
}
