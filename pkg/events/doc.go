/*
Package events is a buffered pub/sub broker for role lifecycle and
show-session activity: Start the Broker, Subscribe for a channel of future
Events, Publish from wherever state changes, Unsubscribe/Stop to tear
down. Delivery is best-effort — a full subscriber buffer drops the event
rather than blocking the publisher.
*/
package events
