// Package notifysync keeps a signed-in user's notifications in sync with a
// notification server in real time.
//
// A Client follows the application's authentication state. When a user
// signs in it opens an event channel, announces the user with user:join and
// applies pushed notifications, unread counts and read-all events to an
// in-memory store. When the user signs out or another user signs in, the
// previous state is discarded before anything of the new user is visible.
//
//	var cfg notifysync.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//	client, err := notifysync.NewFromConfig(ctx, cfg, notifysync.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	auth := session.NewMemoryAuthProvider(session.AuthState{})
//	go client.Run(ctx, auth)
//	auth.Login("user-42")
//
//	for _, n := range client.Notifications() {
//	    fmt.Println(client.Text(n.Title, language.Arabic))
//	}
//	client.MarkOneRead(id)
//
// Reads and mutations work on local state whether or not the server is
// reachable. Read acknowledgements are sent in the background when a
// connection is live and skipped otherwise. Connectivity problems only show
// up in Status.
package notifysync
