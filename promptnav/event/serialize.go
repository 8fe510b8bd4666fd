package event

import "encoding/json"

// MarshalUpdate serialises an Update to JSON.
func MarshalUpdate(u *Update) ([]byte, error) {
	return json.Marshal(u)
}

// UnmarshalUpdate deserialises an Update from JSON.
func UnmarshalUpdate(data []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// MarshalPrompts serialises a prompt list to JSON, always as an array.
func MarshalPrompts(ps []Prompt) ([]byte, error) {
	if ps == nil {
		ps = []Prompt{}
	}
	return json.Marshal(ps)
}
