// Package factory provides the generic registry used to build pluggable
// backends (inventory stores, pair lockers, metrics sinks, audit log stores)
// from configuration. A backend is selected by a type string and receives a
// map of raw settings that Decode turns into a typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[inventory.Store]("inventory")
//	reg.Register("sqlite", func(conf map[string]any) (inventory.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewSQLiteStore(c.Path)
//	})
//	st, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "slots.db"}})
package factory
