// Package userfilter provides flexquery filters that take the acting user as
// their first argument.
//
// The first argument may be the user itself, an *http.Request whose context
// carries the user (see WithUser) or any UserCarrier. Two flavours differ in
// how a missing user is handled:
//
//   - ForUser filters hide everything, or show everything when
//     ForUserConfig.AllIfNoUser is set.
//   - UserBased filters follow UserBasedConfig.NoUserBehavior and may treat
//     anonymous users as missing.
//
// Example:
//
//	ownDocuments, err := userfilter.ForUserPredicate(func(args ...any) predicate.Q {
//	    return predicate.Lookup("owner_id", args[0].(*User).ID)
//	}, userfilter.ForUserConfig{})
//
//	docs := flexquery.NewRegistry("documents").MustDeclare("own", ownDocuments)
//	f, _ := pg.Manager(&Document{}, docs).FQ("own")
//	qs := f.Call(r) // r is the incoming *http.Request
package userfilter
