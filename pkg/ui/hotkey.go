package ui

import (
	"fmt"
	"log"

	"golang.design/x/hotkey"
)

var hotkeyMods = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
}

var hotkeyKeys = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
}

// registerStopHotkey binds the global stop combination. onPress runs on
// every key down until the returned hotkey is unregistered.
func registerStopHotkey(mods []string, key string, onPress func()) (*hotkey.Hotkey, error) {
	k, ok := hotkeyKeys[key]
	if !ok {
		return nil, fmt.Errorf("unsupported hotkey key %q", key)
	}
	var ms []hotkey.Modifier
	for _, m := range mods {
		mod, ok := hotkeyMods[m]
		if !ok {
			return nil, fmt.Errorf("unsupported hotkey modifier %q", m)
		}
		ms = append(ms, mod)
	}

	hk := hotkey.New(ms, k)
	if err := hk.Register(); err != nil {
		return nil, err
	}

	go func() {
		for range hk.Keydown() {
			log.Println("Stop hotkey pressed")
			onPress()
		}
	}()
	return hk, nil
}
