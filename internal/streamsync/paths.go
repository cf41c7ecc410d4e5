package streamsync

import (
	"github.com/rzbill/streamsync/internal/datastore"
	"github.com/rzbill/streamsync/internal/notification"
)

const (
	streamsContainer = "streams"
	streamList       = "stream"
	streamKeyLeaf    = notification.LeafName
)

// DefaultRoot is the subtree a Synchronizer owns unless configured otherwise.
var DefaultRoot = datastore.NewPath(datastore.Node("netconf"))

// StreamsPath returns the streams collection under root.
func StreamsPath(root datastore.Path) datastore.Path {
	return root.Child(datastore.Node(streamsContainer))
}

// StreamPath returns the entry for name under root.
func StreamPath(root datastore.Path, name notification.StreamName) datastore.Path {
	return StreamsPath(root).Child(datastore.Keyed(streamList, streamKeyLeaf, string(name)))
}

// StreamNameOf extracts the stream name from an entry path.
func StreamNameOf(p datastore.Path) (notification.StreamName, bool) {
	last, ok := p.Last()
	if !ok || last.Name != streamList || last.KeyName != streamKeyLeaf {
		return "", false
	}
	return notification.StreamName(last.KeyValue), true
}
