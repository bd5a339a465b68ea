package discord

import "skidoodle/lastfm-rpc/internal/presence"

type handshake struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string      `json:"cmd"`
	Args  commandArgs `json:"args"`
	Nonce string      `json:"nonce"`
}

type commandArgs struct {
	PID      int       `json:"pid"`
	Activity *activity `json:"activity,omitempty"`
}

type activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Assets     *assets     `json:"assets,omitempty"`
	Timestamps *timestamps `json:"timestamps,omitempty"`
	Buttons    []button    `json:"buttons,omitempty"`
}

type assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

type timestamps struct {
	End int64 `json:"end,omitempty"`
}

type button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// response is a reply or dispatch frame sent by Discord.
type response struct {
	Cmd   string `json:"cmd"`
	Evt   string `json:"evt"`
	Nonce string `json:"nonce"`
	Data  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

// closeMessage is the body of an opClose frame.
type closeMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newActivity(p presence.Payload) *activity {
	a := &activity{
		Details: p.Details,
		State:   p.State,
		Assets: &assets{
			LargeImage: p.LargeImage.URL,
			LargeText:  p.LargeImage.Text,
			SmallImage: p.SmallImage.URL,
			SmallText:  p.SmallImage.Text,
		},
	}
	if p.HasEnd() {
		a.Timestamps = &timestamps{End: p.End.UnixMilli()}
	}
	for _, b := range p.Buttons {
		a.Buttons = append(a.Buttons, button{Label: b.Label, URL: b.URL})
	}
	return a
}
