// Package events carries domain events from the services that commit task
// changes to the components that react to them.
//
// Services emit a TaskEvent after a mutation has been persisted. Handlers
// such as the realtime gateway register on an EventEmitter and receive every
// event. Delivery is synchronous and best effort: there is no outbox, so a
// crash between commit and emit loses the notification.
package events
