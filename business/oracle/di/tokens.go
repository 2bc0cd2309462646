// Package di contains dependency injection tokens for the oracle context.
package di

import (
	"github.com/fd1az/crystal-ball/business/oracle/app"
	"github.com/fd1az/crystal-ball/internal/di"
)

// Public service tokens - exposed to the UI and cmd
var (
	Session = di.NewToken[*app.Session]("oracle.Session")
)

// Private dependency tokens - internal to oracle module
var (
	Counter   = di.NewToken[app.CounterContract]("oracle:counter")
	Presenter = di.NewToken[app.Presenter]("oracle:presenter")
)

// Helper functions for type-safe access
func GetSession(c di.ServiceRegistry) *app.Session {
	return di.GetToken(c, Session)
}

func GetCounter(c di.ServiceRegistry) app.CounterContract {
	return di.GetToken(c, Counter)
}

func GetPresenter(c di.ServiceRegistry) app.Presenter {
	return di.GetToken(c, Presenter)
}
