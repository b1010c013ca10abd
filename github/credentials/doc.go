/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package credentials authenticates as a GitHub App and mints installation
// access tokens.
//
// A Signer produces short-lived RS256 assertions from the App's private key.
// A Manager resolves which installation covers a repository, exchanges an
// assertion for an installation token, and keeps that token in a TokenCache
// until it is within thirty seconds of expiry.
//
//	signer, err := credentials.NewSigner(appID, pemKey)
//	if err != nil {
//		return err
//	}
//	mgr, err := credentials.New(signer, ratelimit.NewClient(), credentials.NewTokenCache())
//	if err != nil {
//		return err
//	}
//	id, err := mgr.ResolveInstallation(ctx, "octocat", "hello-world")
//	...
//	ts := mgr.TokenSource(id)
//
// Every error produced here reports Fatal() == true: without valid
// credentials no further GitHub call can succeed.
package credentials
