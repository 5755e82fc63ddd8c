package query

import "encoding/json"

func encodeHits(hits []Hit) (string, error) {
	data, err := json.Marshal(hits)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeHits(raw string) ([]Hit, error) {
	var hits []Hit
	if err := json.Unmarshal([]byte(raw), &hits); err != nil {
		return nil, err
	}
	return hits, nil
}
