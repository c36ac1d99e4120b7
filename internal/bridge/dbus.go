//go:build linux

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/llehouerou/shoal/internal/xmlquery"
)

const (
	errInvalidQuery = "org.shoal.Error.InvalidQuery"
	errTimeout      = "org.shoal.Error.Timeout"
	errFailed       = "org.shoal.Error.Failed"
)

// Server exports a Service on the session bus.
type Server struct {
	conn *dbus.Conn
}

// exported is the object seen by D-Bus; its methods are the interface.
type exported struct {
	svc *Service
}

// Query answers one XML query with a list of string maps.
func (e *exported) Query(doc string) ([]map[string]string, *dbus.Error) {
	results, err := e.svc.Query(context.Background(), doc)
	if err != nil {
		return nil, toDBusError(err)
	}
	if results == nil {
		results = []map[string]string{}
	}
	return results, nil
}

func toDBusError(err error) *dbus.Error {
	name := errFailed
	switch {
	case errors.Is(err, xmlquery.ErrInvalidQuery):
		name = errInvalidQuery
	case errors.Is(err, ErrTimeout):
		name = errTimeout
	}
	return dbus.NewError(name, []any{err.Error()})
}

var introspection = introspect.Node{
	Name: ObjectPath,
	Interfaces: []introspect.Interface{
		introspect.IntrospectData,
		{
			Name: Interface,
			Methods: []introspect.Method{{
				Name: "Query",
				Args: []introspect.Arg{
					{Name: "xml", Type: "s", Direction: "in"},
					{Name: "results", Type: "aa{ss}", Direction: "out"},
				},
			}},
		},
	},
}

// Serve connects to the session bus, exports svc and claims BusName.
func Serve(svc *Service) (*Server, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	if err := Export(conn, svc); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", BusName)
	}

	svc.logger.Info().Str("name", BusName).Str("path", ObjectPath).Msg("collection exported")
	return &Server{conn: conn}, nil
}

// Export makes svc callable at ObjectPath on conn.
func Export(conn *dbus.Conn, svc *Service) error {
	if err := conn.Export(&exported{svc: svc}, dbus.ObjectPath(ObjectPath), Interface); err != nil {
		return err
	}
	return conn.Export(introspect.NewIntrospectable(&introspection), dbus.ObjectPath(ObjectPath),
		"org.freedesktop.DBus.Introspectable")
}

// Close releases the bus name and the connection.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	_, _ = s.conn.ReleaseName(BusName)
	return s.conn.Close()
}
