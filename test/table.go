package test

import (
	jsoniter "github.com/json-iterator/go"

	"tavern.com/gameserver/game"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func unmarshalTable(view game.TableView, v interface{}) error {
	return json.Unmarshal(view.Table, v)
}
